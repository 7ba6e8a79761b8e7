package raw

// IntValue extracts an integer from a numeric object.
func IntValue(o Object) (int64, bool) {
	n, ok := o.(NumberObj)
	if !ok {
		return 0, false
	}
	return n.Int(), true
}

// NameValue extracts the string value of a name object.
func NameValue(o Object) (string, bool) {
	switch n := o.(type) {
	case NameObj:
		return n.Val, true
	default:
		return "", false
	}
}

// DictInt reads an integer entry from a dictionary.
func DictInt(d *DictObj, key string) (int64, bool) {
	if d == nil {
		return 0, false
	}
	v, ok := d.Get(NameObj{Val: key})
	if !ok {
		return 0, false
	}
	return IntValue(v)
}

// DictName reads a name entry from a dictionary.
func DictName(d *DictObj, key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.Get(NameObj{Val: key})
	if !ok {
		return "", false
	}
	return NameValue(v)
}
