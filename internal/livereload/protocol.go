// Package livereload implements the two live-update sockets: a build-phase
// broadcast channel and the hot-module-replacement channel, plus the client
// side that consumes them.
package livereload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crxkit/crxkit/internal/domain"
)

// Build-phase tags. The channel itself accepts any non-empty tag.
const (
	PhaseBuildReady           = "build_ready"
	PhaseContentScriptChanged = "cs_changed"
)

// HMR message types.
const (
	MessageUpdate = "update"
	MessageError  = "error"
)

// BuildMessage is the only frame sent on the build-phase channel.
type BuildMessage struct {
	Type string `json:"type"`
}

// Asset identifies one replaced module and where its new payload lives.
type Asset struct {
	ID           string                       `json:"id"`
	URL          string                       `json:"url,omitempty"`
	Type         string                       `json:"type"`
	Output       string                       `json:"output"`
	EnvHash      string                       `json:"envHash"`
	OutputFormat string                       `json:"outputFormat"`
	DepsByBundle map[string]map[string]string `json:"depsByBundle"`
}

// Diagnostic is one rendered build error.
type Diagnostic struct {
	Message   string   `json:"message"`
	Codeframe string   `json:"codeframe,omitempty"`
	Stack     string   `json:"stack,omitempty"`
	Hints     []string `json:"hints"`
}

// MarshalJSON always emits hints as an array.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	type plain Diagnostic
	if d.Hints == nil {
		d.Hints = []string{}
	}
	return json.Marshal(plain(d))
}

// Render formats the diagnostic the way the client logs it: the message,
// then the code frame or stack, then the hints.
func (d Diagnostic) Render() string {
	detail := d.Codeframe
	if detail == "" {
		detail = d.Stack
	}
	return d.Message + "\n" + detail + "\n\n" + strings.Join(d.Hints, "\n")
}

// Diagnostics groups the diagnostics of one failed build.
type Diagnostics struct {
	ANSI []Diagnostic `json:"ansi"`
}

// HMRMessage is the tagged union sent on the HMR channel.
type HMRMessage struct {
	Type        string       `json:"type"`
	Assets      []Asset      `json:"assets,omitempty"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// MarshalJSON emits exactly the fields of the active variant.
func (m HMRMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageUpdate:
		assets := m.Assets
		if assets == nil {
			assets = []Asset{}
		}
		return json.Marshal(struct {
			Type   string  `json:"type"`
			Assets []Asset `json:"assets"`
		}{m.Type, assets})
	case MessageError:
		diags := Diagnostics{}
		if m.Diagnostics != nil {
			diags = *m.Diagnostics
		}
		if diags.ANSI == nil {
			diags.ANSI = []Diagnostic{}
		}
		return json.Marshal(struct {
			Type        string      `json:"type"`
			Diagnostics Diagnostics `json:"diagnostics"`
		}{m.Type, diags})
	default:
		return nil, fmt.Errorf("unknown hmr message type %q", m.Type)
	}
}

// NewUpdateMessage builds an update for assets in order.
func NewUpdateMessage(assets []Asset) HMRMessage {
	return HMRMessage{Type: MessageUpdate, Assets: assets}
}

// NewErrorMessage builds an error message for diags.
func NewErrorMessage(diags []Diagnostic) HMRMessage {
	return HMRMessage{Type: MessageError, Diagnostics: &Diagnostics{ANSI: diags}}
}

// DecodeHMRMessage parses a frame and validates its tag.
func DecodeHMRMessage(data []byte) (HMRMessage, error) {
	var msg HMRMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return HMRMessage{}, domain.NewAppErrorWithCause(domain.ErrInvalidInput, "Malformed HMR message", 400, err, nil)
	}
	switch msg.Type {
	case MessageUpdate:
		return msg, nil
	case MessageError:
		if msg.Diagnostics == nil {
			return HMRMessage{}, domain.NewAppError(domain.ErrInvalidInput, "HMR error message without diagnostics", 400, nil)
		}
		return msg, nil
	default:
		return HMRMessage{}, domain.NewAppError(domain.ErrInvalidInput, "Unknown HMR message type", 400, map[string]any{"type": msg.Type})
	}
}

// DecodeBuildMessage parses a build-phase frame.
func DecodeBuildMessage(data []byte) (BuildMessage, error) {
	var msg BuildMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return BuildMessage{}, domain.NewAppErrorWithCause(domain.ErrInvalidInput, "Malformed build message", 400, err, nil)
	}
	if msg.Type == "" {
		return BuildMessage{}, domain.NewAppError(domain.ErrInvalidInput, "Build message without type", 400, nil)
	}
	return msg, nil
}
