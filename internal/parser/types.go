package parser

import "strings"

// ElementType is the kind of span an Element covers.
type ElementType string

const (
	ElementComment    ElementType = "Comment"
	ElementMacro      ElementType = "Macro"
	ElementTag        ElementType = "Tag"
	ElementPlainText  ElementType = "PlainText"
	ElementJavaScript ElementType = "JavaScript"
)

// BlockRole marks an element as the opening or closing side of a paired block.
// The zero value means the element is not part of a block boundary.
type BlockRole string

const (
	BlockNone      BlockRole = ""
	MacroBlockHead BlockRole = "MacroBlockHead"
	MacroBlockTail BlockRole = "MacroBlockTail"
	TagBlockHead   BlockRole = "TagBlockHead"
	TagBlockTail   BlockRole = "TagBlockTail"
)

// IsHead reports whether the role opens a block.
func (r BlockRole) IsHead() bool { return r == MacroBlockHead || r == TagBlockHead }

// IsTail reports whether the role closes a block.
func (r BlockRole) IsTail() bool { return r == MacroBlockTail || r == TagBlockTail }

// Widget is a <<widget "NAME">> … <</widget>> span inside a widget passage.
type Widget struct {
	// Name is the widget name without quotes.
	Name string `json:"name"`
	// Body is the text between the widget head and tail.
	Body string `json:"body"`
	// PosStart and PosEnd span the whole widget, head and tail included.
	PosStart int `json:"pos_start"`
	PosEnd   int `json:"pos_end"`
	// Length is len(Body).
	Length int `json:"length"`
	// Passage is the title of the owning passage.
	Passage string `json:"passage"`
}

// Passage is one `:: Title [tags] {metadata}` section of a source file.
type Passage struct {
	Filepath string   `json:"filepath"`
	Title    string   `json:"title"`
	Tag      string   `json:"tag,omitempty"`
	Metadata string   `json:"metadata,omitempty"`
	Body     string   `json:"body"`
	Length   int      `json:"length"`
	Widgets  []Widget `json:"widgets,omitempty"`
}

// Ref identifies the passage within the corpus. Titles are not unique across
// files, so the source path is part of it.
func (p Passage) Ref() string {
	return PassageRef(p.Filepath, p.Title)
}

// PassageRef builds the reference of the passage titled title in filepath.
func PassageRef(filepath, title string) string {
	return filepath + "|" + title
}

// Tags returns the space separated tags of the passage.
func (p Passage) Tags() []string {
	return strings.Fields(p.Tag)
}

// HasTag reports whether the passage carries tag, ignoring case.
func (p Passage) HasTag(tag string) bool {
	for _, t := range p.Tags() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Element is a contiguous typed span of a passage body.
// Offsets are byte offsets into Passage.Body.
type Element struct {
	Filepath         string      `json:"filepath"`
	Passage          string      `json:"passage"`
	Widget           string      `json:"widget,omitempty"`
	Type             ElementType `json:"type"`
	Body             string      `json:"body"`
	PosStart         int         `json:"pos_start"`
	PosEnd           int         `json:"pos_end"`
	Length           int         `json:"length"`
	Block            BlockRole   `json:"block,omitempty"`
	BlockName        string      `json:"block_name,omitempty"`
	BlockSemanticKey string      `json:"block_semantic_key,omitempty"`
	Level            int         `json:"level"`
}

// ClosableNames holds the macro and tag names that occur in closing form
// somewhere in the corpus.
type ClosableNames struct {
	Macros map[string]struct{}
	Tags   map[string]struct{}
}

// HasMacro reports whether name is a closable macro.
func (c ClosableNames) HasMacro(name string) bool {
	_, ok := c.Macros[name]
	return ok
}

// HasTag reports whether name is a closable tag.
func (c ClosableNames) HasTag(name string) bool {
	_, ok := c.Tags[name]
	return ok
}
