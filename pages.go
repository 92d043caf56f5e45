package rspdft

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"seehuhn.de/go/pdf"
)

var errNoPageTree = errors.New("catalog has no page tree")

// a4Width and a4Height are the blank-page dimensions in points, matching
// the ISO 216 A4 size used throughout this engine.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

const maxParentWalk = 10

// collectPages flattens a (possibly nested) page tree into the document's
// linear, 1-indexed page list.
func collectPages(data *pdf.Data, ref pdf.Reference, depth int) ([]pdf.Reference, error) {
	if depth > 64 {
		return nil, fmt.Errorf("page tree nested too deeply")
	}
	dict, err := pdf.GetDict(data, ref)
	if err != nil {
		return nil, err
	}
	if name, _ := pdf.GetName(data, dict["Type"]); name == "Page" {
		return []pdf.Reference{ref}, nil
	}

	kids, err := pdf.GetArray(data, dict["Kids"])
	if err != nil {
		return nil, err
	}
	var out []pdf.Reference
	for _, kid := range kids {
		kidRef, ok := kid.(pdf.Reference)
		if !ok {
			continue
		}
		sub, err := collectPages(data, kidRef, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// replaceObject overwrites an already-written indirect object: pdf.Data.Put
// refuses to overwrite an existing reference directly, so this deletes it
// first (Put with a nil object) and re-inserts the new value under the
// same reference.
func replaceObject(data *pdf.Data, ref pdf.Reference, obj pdf.Object) error {
	if err := data.Put(ref, nil); err != nil {
		return err
	}
	return data.Put(ref, obj)
}

// pageRef returns the indirect reference for a 1-indexed page number,
// failing with *InvalidPage if it is out of range.
func (doc *Document) pageRef(page int) (pdf.Reference, error) {
	if page < 1 || page > len(doc.pages) {
		return 0, &InvalidPage{Given: page, Total: len(doc.pages)}
	}
	return doc.pages[page-1], nil
}

// pageHeight resolves a page's MediaBox height, walking the Parent chain
// (capped, per the engine's soft-failure policy) and defaulting to A4 if
// no MediaBox is reachable.
func (doc *Document) pageHeight(page int) float64 {
	ref, err := doc.pageRef(page)
	if err != nil {
		return a4Height
	}
	return mediaBoxHeight(doc.data, ref)
}

func mediaBoxHeight(data *pdf.Data, ref pdf.Reference) float64 {
	cur := pdf.Object(ref)
	for i := 0; i < maxParentWalk; i++ {
		dict, err := pdf.GetDict(data, cur)
		if err != nil || dict == nil {
			return a4Height
		}
		if box, err := pdf.GetFloatArray(data, dict["MediaBox"]); err == nil && len(box) == 4 {
			return box[3] - box[1]
		}
		parent, ok := dict["Parent"]
		if !ok {
			return a4Height
		}
		cur = parent
	}
	return a4Height
}

// DuplicatePage deep-copies page's dictionary (including its content
// streams, whether a single stream or an array of streams) and appends the
// clone to the end of the document. It also mirrors the source page's
// font and image resource-tag bookkeeping onto the new page number so
// that further buffered insertions referring to those tags stay
// consistent.
func (doc *Document) DuplicatePage(page int) (int, error) {
	srcRef, err := doc.pageRef(page)
	if err != nil {
		return 0, err
	}
	srcDict, err := pdf.GetDict(doc.data, srcRef)
	if err != nil {
		return 0, &ParseError{Msg: err.Error()}
	}

	newDict, err := deepCopyPageDict(doc.data, srcDict)
	if err != nil {
		return 0, &ParseError{Msg: err.Error()}
	}
	newDict["Parent"] = doc.pagesRootRef

	newRef := doc.data.Alloc()
	if err := doc.data.Put(newRef, newDict); err != nil {
		return 0, &SaveError{Err: err}
	}

	if err := doc.appendPageRef(newRef); err != nil {
		return 0, &SaveError{Err: err}
	}
	doc.pages = append(doc.pages, newRef)
	newPage := len(doc.pages)

	if tags, ok := doc.pageFontTags[page]; ok {
		doc.pageFontTags[newPage] = cloneStringMap(tags)
		doc.pageFontSeq[newPage] = doc.pageFontSeq[page]
	}
	if tags, ok := doc.pageImageTags[page]; ok {
		cloned := make(map[uint64]string, len(tags))
		for k, v := range tags {
			cloned[k] = v
		}
		doc.pageImageTags[newPage] = cloned
		doc.pageImageSeq[newPage] = doc.pageImageSeq[page]
	}

	return newPage, nil
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// deepCopyPageDict copies a page dictionary, resolving and duplicating its
// Contents (single stream or array of streams) so the clone owns
// independent content-stream objects, and deep-copying its Resources (and
// the nested Font/XObject subdictionaries the save pipeline mutates in
// place) so the clone's resource maps are never the same underlying Go map
// as the source page's — an inline Resources dict carries over by Go map
// reference otherwise, since neither pdf.Data.Get nor container.go's
// resolve() clone a dict that isn't fetched through an indirect Reference.
func deepCopyPageDict(data *pdf.Data, src pdf.Dict) (pdf.Dict, error) {
	out := pdf.Dict{}
	for k, v := range src {
		out[k] = v
	}
	delete(out, "Parent")

	if resources, err := pdf.GetDict(data, src["Resources"]); err == nil && resources != nil {
		out["Resources"] = deepCopyResources(data, resources)
	}

	switch contents := src["Contents"].(type) {
	case pdf.Reference:
		newRef, err := duplicateStream(data, contents)
		if err != nil {
			return nil, err
		}
		out["Contents"] = newRef
	case pdf.Array:
		newArr := make(pdf.Array, 0, len(contents))
		for _, item := range contents {
			ref, ok := item.(pdf.Reference)
			if !ok {
				newArr = append(newArr, item)
				continue
			}
			newRef, err := duplicateStream(data, ref)
			if err != nil {
				return nil, err
			}
			newArr = append(newArr, newRef)
		}
		out["Contents"] = newArr
	}
	return out, nil
}

// deepCopyResources copies a Resources dict into a fresh map, along with
// the Font and XObject subdictionaries that attachFontResources and
// attachPageXObject mutate in place on every save. Other resource
// categories (ColorSpace, ExtGState, ...) are shallow-copied at the top
// level only, since nothing in this engine ever writes into them.
func deepCopyResources(data *pdf.Data, resources pdf.Dict) pdf.Dict {
	out := pdf.Dict{}
	for k, v := range resources {
		out[k] = v
	}
	if fonts, err := pdf.GetDict(data, resources["Font"]); err == nil && fonts != nil {
		out["Font"] = cloneDict(fonts)
	}
	if xobjects, err := pdf.GetDict(data, resources["XObject"]); err == nil && xobjects != nil {
		out["XObject"] = cloneDict(xobjects)
	}
	return out
}

func cloneDict(src pdf.Dict) pdf.Dict {
	out := make(pdf.Dict, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func duplicateStream(data *pdf.Data, ref pdf.Reference) (pdf.Reference, error) {
	stm, err := pdf.GetStream(data, ref)
	if err != nil {
		return 0, err
	}
	if stm == nil {
		return ref, nil
	}
	r, err := pdf.DecodeStream(data, stm, 0)
	if err != nil {
		return 0, err
	}
	payload, err := readAll(r)
	if err != nil {
		return 0, err
	}
	dict := pdf.Dict{"Length": pdf.Integer(len(payload))}
	newRef := data.Alloc()
	if err := data.Put(newRef, &pdf.Stream{Dict: dict, R: newByteReader(payload)}); err != nil {
		return 0, err
	}
	return newRef, nil
}

// appendPageRef appends ref to the root page-tree node's Kids array and
// bumps its Count. No parent-chain rebalancing is performed: every
// duplicated or blank page becomes a direct child of the root node.
func (doc *Document) appendPageRef(ref pdf.Reference) error {
	rootDict, err := pdf.GetDict(doc.data, doc.pagesRootRef)
	if err != nil {
		return err
	}
	kids, _ := pdf.GetArray(doc.data, rootDict["Kids"])
	rootDict["Kids"] = append(kids, ref)

	count, _ := pdf.GetInteger(doc.data, rootDict["Count"])
	rootDict["Count"] = count + 1

	return replaceObject(doc.data, doc.pagesRootRef, rootDict)
}

// AddBlankPage appends a fresh A4 page with an empty content stream. If the
// document's catalog carries no language tag yet, it is set to English: a
// blank page is new content this engine is adding, unlike a duplicated or
// template page whose language (if any) should be left alone.
func (doc *Document) AddBlankPage() (int, error) {
	if meta := doc.data.GetMeta(); meta.Catalog != nil && meta.Catalog.Lang == language.Und {
		meta.Catalog.Lang = language.English
	}
	contentRef := doc.data.Alloc()
	if err := doc.data.Put(contentRef, &pdf.Stream{
		Dict: pdf.Dict{"Length": pdf.Integer(0)},
		R:    newByteReader(nil),
	}); err != nil {
		return 0, &SaveError{Err: err}
	}

	pageDict := pdf.Dict{
		"Type":      pdf.Name("Page"),
		"Parent":    doc.pagesRootRef,
		"MediaBox":  pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Real(a4Width), pdf.Real(a4Height)},
		"Contents":  contentRef,
		"Resources": pdf.Dict{},
	}
	ref := doc.data.Alloc()
	if err := doc.data.Put(ref, pageDict); err != nil {
		return 0, &SaveError{Err: err}
	}
	if err := doc.appendPageRef(ref); err != nil {
		return 0, &SaveError{Err: err}
	}
	doc.pages = append(doc.pages, ref)
	return len(doc.pages), nil
}
