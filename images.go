package rspdft

import (
	"hash/fnv"

	"seehuhn.de/go/pdf"

	img "github.com/kapong/rspdft/image"
)

// InsertImage decodes and places an image (JPEG or PNG, tried in that
// order) at (x, y) in top-origin coordinates, stretching it to exactly
// (w, h). Identical raw byte buffers are deduplicated by a 64-bit hash:
// the payload is decoded on every call (for its natural size), but the
// XObject is embedded only once, and every page gets its own resource tag
// on first use. Unlike text, image operators
// are appended to the page's content accumulator immediately; there is
// no deferred encoding step.
func (doc *Document) InsertImage(data []byte, page int, x, y, w, h float64) error {
	return doc.insertImage(data, page, x, y, w, h, img.Stretch)
}

// InsertImageScaled is a convenience wrapper over InsertImage that takes
// an explicit ScaleMode instead of always stretching to (w, h).
func (doc *Document) InsertImageScaled(data []byte, page int, x, y, w, h float64, mode img.ScaleMode) error {
	return doc.insertImage(data, page, x, y, w, h, mode)
}

func (doc *Document) insertImage(data []byte, page int, x, y, w, h float64, mode img.ScaleMode) error {
	if page < 1 || page > len(doc.pages) {
		return &InvalidPage{Given: page, Total: len(doc.pages)}
	}

	xobj, err := img.Decode(data)
	if err != nil {
		return &ImageError{Msg: err.Error()}
	}

	hash := hashBytes(data)
	ref, ok := doc.imageObjects[hash]
	if !ok {
		ref, err = doc.embedImage(xobj)
		if err != nil {
			return &ImageError{Msg: err.Error()}
		}
		doc.imageObjects[hash] = ref
	}

	tags, ok := doc.pageImageTags[page]
	if !ok {
		tags = map[uint64]string{}
		doc.pageImageTags[page] = tags
	}
	tag, isNew := tags[hash]
	if !isNew {
		seq := doc.pageImageSeq[page]
		tag = imageTagName(seq)
		doc.pageImageSeq[page] = seq + 1
		tags[hash] = tag
		if err := doc.attachPageXObject(page, tag, ref); err != nil {
			return &SaveError{Err: err}
		}
	}

	actualW, actualH := img.Resolve(mode, float64(xobj.Width), float64(xobj.Height), w, h)
	pdfY := doc.pageHeight(page) - y - actualH

	doc.pageAccum[page] = append(doc.pageAccum[page], img.Operators(tag, x, pdfY, actualW, actualH)...)
	return nil
}

func hashBytes(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

func (doc *Document) embedImage(xobj *img.XObject) (pdf.Reference, error) {
	dict := pdf.Dict{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(xobj.Width),
		"Height":           pdf.Integer(xobj.Height),
		"ColorSpace":       pdf.Name(xobj.ColorSpace),
		"BitsPerComponent": pdf.Integer(xobj.BitsPerComponent),
		"Filter":           pdf.Name(xobj.Filter),
		"Length":           pdf.Integer(len(xobj.Data)),
	}
	ref := doc.data.Alloc()
	if err := doc.data.Put(ref, &pdf.Stream{Dict: dict, R: newByteReader(xobj.Data)}); err != nil {
		return 0, err
	}
	return ref, nil
}

// attachPageXObject writes Resources/XObject/tag -> ref into page's
// dictionary immediately (not deferred, unlike font resources).
func (doc *Document) attachPageXObject(page int, tag string, ref pdf.Reference) error {
	pageRef, err := doc.pageRef(page)
	if err != nil {
		return err
	}
	pageDict, err := pdf.GetDict(doc.data, pageRef)
	if err != nil {
		return err
	}

	resources, _ := pdf.GetDict(doc.data, pageDict["Resources"])
	if resources == nil {
		resources = pdf.Dict{}
	}
	xobjects, _ := pdf.GetDict(doc.data, resources["XObject"])
	if xobjects == nil {
		xobjects = pdf.Dict{}
	}
	xobjects[pdf.Name(tag)] = ref
	resources["XObject"] = xobjects
	pageDict["Resources"] = resources

	return replaceObject(doc.data, pageRef, pageDict)
}
