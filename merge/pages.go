package merge

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfbind/ir/raw"
)

// Inheritable page-tree attributes (PDF 7.7.3.4). They are materialised
// onto each copied page because the source parent chain is not carried over.
var inheritableKeys = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

const maxPageTreeDepth = 64

// page is one leaf of a source page tree, in native stored order.
type page struct {
	ref       raw.ObjectRef
	dict      *raw.DictObj
	inherited map[string]raw.Object
}

// collectPages walks the page tree from the catalog, depth first, left to
// right, which is exactly the document's native page order.
func collectPages(doc *raw.Document) ([]page, error) {
	if doc.Trailer == nil {
		return nil, errors.New("missing trailer")
	}
	rootObj, ok := doc.Trailer.Get(raw.NameLiteral("Root"))
	if !ok {
		return nil, errors.New("trailer missing Root")
	}
	catalog, ok := doc.Resolve(rootObj).(*raw.DictObj)
	if !ok {
		return nil, errors.New("catalog is not a dictionary")
	}
	pagesObj, ok := catalog.Get(raw.NameLiteral("Pages"))
	if !ok {
		return nil, errors.New("catalog missing Pages")
	}
	rootRef, ok := pagesObj.(raw.RefObj)
	if !ok {
		return nil, errors.New("Pages must be an indirect reference")
	}

	var out []page
	if err := walkPageTree(doc, rootRef.R, map[string]raw.Object{}, 0, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("document has no pages")
	}
	return out, nil
}

func walkPageTree(doc *raw.Document, ref raw.ObjectRef, inherited map[string]raw.Object, depth int, out *[]page) error {
	if depth > maxPageTreeDepth {
		return errors.New("page tree too deep")
	}
	node, ok := doc.Resolve(raw.RefObj{R: ref}).(*raw.DictObj)
	if !ok {
		return fmt.Errorf("page tree node %s is not a dictionary", ref)
	}

	typ, _ := raw.DictName(node, "Type")
	switch typ {
	case "Page":
		*out = append(*out, page{ref: ref, dict: node, inherited: inherited})
		return nil
	case "Pages", "": // some producers omit /Type on intermediate nodes
		kidsObj, ok := node.Get(raw.NameLiteral("Kids"))
		if !ok {
			// A leaf without /Type but with /Contents is a page.
			if _, hasContents := node.Get(raw.NameLiteral("Contents")); hasContents {
				*out = append(*out, page{ref: ref, dict: node, inherited: inherited})
				return nil
			}
			return fmt.Errorf("page tree node %s has no Kids", ref)
		}
		kids, ok := doc.Resolve(kidsObj).(*raw.ArrayObj)
		if !ok {
			return fmt.Errorf("Kids of %s is not an array", ref)
		}
		childInherited := pushInherited(node, inherited)
		for _, kid := range kids.Items {
			kidRef, ok := kid.(raw.RefObj)
			if !ok {
				return fmt.Errorf("kid of %s is not an indirect reference", ref)
			}
			if err := walkPageTree(doc, kidRef.R, childInherited, depth+1, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected page tree node type %q", typ)
	}
}

// pushInherited layers a node's inheritable attributes over those of its
// ancestors.
func pushInherited(node *raw.DictObj, inherited map[string]raw.Object) map[string]raw.Object {
	child := make(map[string]raw.Object, len(inherited))
	for k, v := range inherited {
		child[k] = v
	}
	for _, key := range inheritableKeys {
		if v, ok := node.Get(raw.NameLiteral(key)); ok {
			child[key] = v
		}
	}
	return child
}

// copier transplants object closures from one parsed document into the
// output namespace, renumbering as it goes. One copier serves one source, so
// objects shared between pages of the same source are copied once.
type copier struct {
	src     *raw.Document
	dst     *raw.Document
	next    *int
	mapping map[raw.ObjectRef]raw.ObjectRef
}

func (c *copier) alloc() raw.ObjectRef {
	ref := raw.ObjectRef{Num: *c.next}
	*c.next++
	return ref
}

// copyPage clones a page dictionary into the destination, dropping the
// source /Parent, re-pointing it at the new page tree and materialising
// inherited attributes the page does not set itself.
func (c *copier) copyPage(p page, parent raw.ObjectRef) raw.ObjectRef {
	newRef, ok := c.mapping[p.ref]
	if !ok {
		newRef = c.alloc()
		// Pre-seed so annotation /P back-references land on the copy
		// instead of dragging the original page in again.
		c.mapping[p.ref] = newRef
	}

	pageDict := raw.Dict()
	pageDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
	for _, key := range p.dict.Keys() {
		name := key.Value()
		if name == "Parent" || name == "Type" {
			continue
		}
		v, _ := p.dict.Get(key)
		pageDict.Set(raw.NameObj{Val: name}, c.clone(v))
	}
	for _, key := range inheritableKeys {
		if _, own := pageDict.Get(raw.NameLiteral(key)); own {
			continue
		}
		if v, ok := p.inherited[key]; ok {
			pageDict.Set(raw.NameLiteral(key), c.clone(v))
		}
	}
	if _, ok := pageDict.Get(raw.NameLiteral("MediaBox")); !ok {
		pageDict.Set(raw.NameLiteral("MediaBox"), raw.NewArray(
			raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(612), raw.NumberInt(792)))
	}
	pageDict.Set(raw.NameLiteral("Parent"), raw.Ref(parent.Num, parent.Gen))

	c.dst.Objects[newRef] = pageDict
	return newRef
}

// copyRef maps one source object reference into the destination, copying the
// referenced object (and transitively everything it references) on first
// sight.
func (c *copier) copyRef(ref raw.ObjectRef) raw.RefObj {
	if mapped, ok := c.mapping[ref]; ok {
		return raw.RefObj{R: mapped}
	}
	newRef := c.alloc()
	c.mapping[ref] = newRef
	obj, ok := c.src.Objects[ref]
	if !ok || obj == nil {
		// Dangling reference; null preserves shape without inventing data.
		c.dst.Objects[newRef] = raw.NullObj{}
		return raw.RefObj{R: newRef}
	}
	// Reserve the slot before descending so reference cycles terminate.
	c.dst.Objects[newRef] = raw.NullObj{}
	c.dst.Objects[newRef] = c.clone(obj)
	return raw.RefObj{R: newRef}
}

// clone deep-copies a direct object, rewriting indirect references into the
// destination namespace. Stream payloads are copied verbatim: page content
// is preserved byte for byte.
func (c *copier) clone(obj raw.Object) raw.Object {
	switch v := obj.(type) {
	case raw.RefObj:
		return c.copyRef(v.R)
	case *raw.ArrayObj:
		items := make([]raw.Object, 0, len(v.Items))
		for _, it := range v.Items {
			items = append(items, c.clone(it))
		}
		return &raw.ArrayObj{Items: items}
	case *raw.DictObj:
		d := raw.Dict()
		for k, val := range v.KV {
			d.Set(raw.NameObj{Val: k}, c.clone(val))
		}
		return d
	case *raw.StreamObj:
		dict, _ := c.clone(v.Dict).(*raw.DictObj)
		data := append([]byte(nil), v.Data...)
		return raw.NewStream(dict, data)
	default:
		// Scalars are immutable value types.
		return obj
	}
}
