package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/blackmichael/postmock/internal/avatar"
	"github.com/blackmichael/postmock/internal/config"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/snapshot"
)

type renderStyleSet struct{ success, dim lipgloss.Style }

func renderStyles(tty bool) renderStyleSet {
	if !tty {
		return renderStyleSet{}
	}
	return renderStyleSet{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// newRenderCmd creates the render command.
func newRenderCmd() *cobra.Command {
	var file, outDir string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a post file to PNG",
		Long: `Render a YAML post file to a PNG image.

  display_name: Ada Lovelace
  handle: ada
  verified: true
  body: "Merhaba #dünya @charles"
  likes: 12000
  lang: tr
  avatar_file: ada.png

A lookup key fills the post from the configured profile provider first;
fields set in the file override it.`,
		Example: `  postmock render -f post.yaml
  postmock render -f post.yaml -o out/`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, file, outDir)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML post file")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runRender(cmd *cobra.Command, file, outDir string) error {
	pf, err := config.LoadPostFile(file)
	if err != nil {
		return fmt.Errorf("load post file: %w", err)
	}

	if pf.AvatarFile != "" {
		path := pf.AvatarFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(file), path)
		}
		uri, err := readAvatar(path)
		if err != nil {
			return err
		}
		pf.Avatar = uri
	}

	st, closeStudio, err := openStudio(cmd)
	if err != nil {
		return err
	}
	defer closeStudio()

	post := domain.NewPost()
	if pf.Lookup != "" {
		if err := st.Lookup(cmd.Context(), post, pf.Lookup); err != nil {
			return fmt.Errorf("lookup %q: %w", pf.Lookup, err)
		}
	}
	pf.Overlay(post)

	art, err := st.Export(cmd.Context(), *post)
	if err != nil {
		return err
	}
	if art == nil {
		return errors.New("nothing to render")
	}

	sink := snapshot.DirSink{Dir: outDir}
	if err := snapshot.Download(art, pf.Filename, sink); err != nil {
		return err
	}

	styles := renderStyles(isTTY(cmd.OutOrStdout()))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
		styles.success.Render("wrote"),
		sink.Path(pf.Filename),
		styles.dim.Render(fmt.Sprintf("(%dx%d)", art.Width, art.Height)),
	)
	return nil
}

func readAvatar(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()

	uri, err := avatar.FromReader(f, avatar.DefaultLimit)
	if err != nil {
		return "", fmt.Errorf("avatar %s: %w", path, err)
	}
	return uri, nil
}
