package document

// SearchableFields lists the dotted paths of every string leaf in doc, in key
// order. The identifier and null values are skipped; nested documents are
// descended into, arrays are not.
func SearchableFields(doc Document, prefix string) []string {
	var out []string
	for _, f := range doc {
		if f.Key == IDField || f.Value == nil {
			continue
		}
		path := prefix + f.Key
		switch v := f.Value.(type) {
		case Document:
			out = append(out, SearchableFields(v, path+".")...)
		case string:
			out = append(out, path)
		}
	}
	return out
}
