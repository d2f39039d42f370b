package session

import (
	"encoding/json"
	"fmt"

	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/domain"
)

// Inbound message types.
const (
	typeEdit   = "edit"
	typeLookup = "lookup"
	typeExport = "export"
)

// Outbound message types.
const (
	typePreview  = "preview"
	typeArtifact = "artifact"
	typeError    = "error"
)

// inbound is a client request. Which fields are set depends on Type.
type inbound struct {
	Type     string      `json:"type"`
	Edit     domain.Edit `json:"-"`
	Query    string      `json:"query,omitempty"`
	Filename string      `json:"filename,omitempty"`
}

// preview is sent after every change to the session's post.
type preview struct {
	Type     string      `json:"type"`
	Post     domain.Post `json:"post"`
	View     card.View   `json:"view"`
	BodyHTML string      `json:"body_html"`
}

// artifact delivers a finished export.
type artifact struct {
	Type       string `json:"type"`
	Filename   string `json:"filename"`
	DataURI    string `json:"data_uri"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Generation uint64 `json:"generation"`
}

// failure reports an operation that did not complete. The post is unchanged.
type failure struct {
	Type    string `json:"type"`
	Op      string `json:"op"`
	Message string `json:"message"`
}

func parseMessage(data []byte) (*inbound, error) {
	var raw struct {
		Type     string `json:"type"`
		Field    string `json:"field"`
		Value    string `json:"value"`
		Query    string `json:"query"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	msg := &inbound{Type: raw.Type}
	switch raw.Type {
	case typeEdit:
		msg.Edit = domain.Edit{Field: domain.Field(raw.Field), Value: raw.Value}
	case typeLookup:
		if raw.Query == "" {
			return nil, fmt.Errorf("lookup: query is required")
		}
		msg.Query = raw.Query
	case typeExport:
		msg.Filename = raw.Filename
	default:
		return nil, fmt.Errorf("unknown message type %q", raw.Type)
	}
	return msg, nil
}
