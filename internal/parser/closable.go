package parser

// InferClosableNames collects every macro and tag name that appears in closing
// form (`<</name>>`, `</name>`) anywhere in the given element lists.
//
// It must see the whole corpus before any passage is resolved: a block in one
// passage may only be recognised by a closing form that appears in another.
func InferClosableNames(corpus ...[]Element) ClosableNames {
	names := ClosableNames{
		Macros: make(map[string]struct{}),
		Tags:   make(map[string]struct{}),
	}
	for _, elements := range corpus {
		for _, e := range elements {
			switch e.Type {
			case ElementMacro:
				if name, closing := macroName(e.Body); closing && name != "" {
					names.Macros[name] = struct{}{}
				}
			case ElementTag:
				if name, closing := tagName(e.Body); closing && name != "" {
					names.Tags[name] = struct{}{}
				}
			}
		}
	}
	return names
}
