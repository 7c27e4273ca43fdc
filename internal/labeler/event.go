package labeler

import (
	"fmt"
	"strings"
)

// Kind enumerates the input events the labeler understands.
type Kind int

const (
	KindInvalid Kind = iota
	PointerDown
	PointerMove
	PointerUp
	Scroll
	SelectDataDir
	SelectLabelDir
	SelectDataFile
	SelectLabelFile
	KeyAdvance
	KeyRetreat
	KeySave
	Refresh
	ClosePreview
)

var kindNames = map[Kind]string{
	PointerDown:     "pointer_down",
	PointerMove:     "pointer_move",
	PointerUp:       "pointer_up",
	Scroll:          "scroll",
	SelectDataDir:   "select_data_dir",
	SelectLabelDir:  "select_label_dir",
	SelectDataFile:  "select_data_file",
	SelectLabelFile: "select_label_file",
	KeyAdvance:      "key_advance",
	KeyRetreat:      "key_retreat",
	KeySave:         "key_save",
	Refresh:         "refresh",
	ClosePreview:    "close_preview",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps an event name to its Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown event kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one operator input. Only the fields relevant to Kind are read:
// X, Y and InAxes for pointer events, Step for Scroll, Path for directory
// selection and Name for file selection.
type Event struct {
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	InAxes bool    `json:"in_axes,omitempty"`
	Step   int     `json:"step,omitempty"`
	Path   string  `json:"path,omitempty"`
	Name   string  `json:"name,omitempty"`
}

// Pointer event constructors.

func Down(x, y float64) Event { return Event{Kind: PointerDown, X: x, Y: y, InAxes: true} }
func Move(x, y float64) Event { return Event{Kind: PointerMove, X: x, Y: y, InAxes: true} }
func Up(x, y float64) Event   { return Event{Kind: PointerUp, X: x, Y: y, InAxes: true} }

// Outside returns a pointer event of kind k with an undefined position.
func Outside(k Kind) Event { return Event{Kind: k} }
