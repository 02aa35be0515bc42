package funkin

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
)

// ErrMalformedAtlasRecord is matched by every MalformedAtlasRecordError.
var ErrMalformedAtlasRecord = errors.New("malformed atlas record")

// MalformedAtlasRecordError identifies the SubTexture record that failed to
// parse. Index is the record's position in document order.
type MalformedAtlasRecordError struct {
	Index int
	Name  string
	Field string
	Err   error
}

func (e *MalformedAtlasRecordError) Error() string {
	msg := fmt.Sprintf("funkin: malformed atlas record %d (%q): field %q", e.Index, e.Name, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrMalformedAtlasRecord.
func (e *MalformedAtlasRecordError) Is(target error) bool {
	return target == ErrMalformedAtlasRecord
}

func (e *MalformedAtlasRecordError) Unwrap() error { return e.Err }

// Region is a named sub-rectangle of an atlas image, in source pixels.
// Regions are not clipped to the image; see AtlasData.OutOfBounds.
type Region struct {
	Name          string
	X, Y          int
	Width, Height int
}

// Rect returns the region as an image.Rectangle suitable for SubImage.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// AnimationSpan is an inclusive range of global frame indices sharing one
// animation name.
type AnimationSpan struct {
	Name       string
	Start, End int
}

// Indices expands the span into the frame index list a clip plays.
func (s AnimationSpan) Indices() []int {
	return SpanIndices(s.Start, s.End)
}

// GroupKeyFunc maps a frame name to the animation it belongs to. ok is false
// when no key can be derived, which makes the record malformed. An empty key
// is malformed too.
type GroupKeyFunc func(frameName string) (key string, ok bool)

// DefaultCounterLength is the width of the zero-padded frame counter that
// Sparrow exporters append to every frame name ("idle0000", "idle0001", ...).
const DefaultCounterLength = 4

// TrimFrameCounter returns a GroupKeyFunc that drops the last n characters of
// a frame name.
func TrimFrameCounter(n int) GroupKeyFunc {
	return func(name string) (string, bool) {
		if n < 0 || len(name) < n {
			return "", false
		}
		return name[:len(name)-n], true
	}
}

// ParseOptions controls ParseSparrow. The zero value parses every animation
// and groups frames with TrimFrameCounter(DefaultCounterLength).
type ParseOptions struct {
	// Filter, when non-empty, keeps only the regions and span of the
	// animation with this name. Frame indices are unaffected.
	Filter string

	// GroupKey derives the animation name from a frame name.
	GroupKey GroupKeyFunc
}

// AtlasData is the decoded form of a sprite-sheet description.
type AtlasData struct {
	// ImagePath is the imagePath attribute of the root element, if any.
	ImagePath string

	// Regions maps frame names to their rectangles.
	Regions map[string]Region

	// Spans lists animations in document order.
	Spans []AnimationSpan

	// FrameCount is the number of records scanned, filtered or not. It is
	// also the size of the global frame index space.
	FrameCount int

	// frames maps global frame index to frame name for retained records.
	frames map[int]string
}

// FrameRegion returns the region stored at a global frame index.
func (a *AtlasData) FrameRegion(index int) (Region, bool) {
	name, ok := a.frames[index]
	if !ok {
		return Region{}, false
	}
	r, ok := a.Regions[name]
	return r, ok
}

// Span returns the span for the named animation.
func (a *AtlasData) Span(name string) (AnimationSpan, bool) {
	for _, s := range a.Spans {
		if s.Name == name {
			return s, true
		}
	}
	return AnimationSpan{}, false
}

// Filter returns the view of a full parse that ParseSparrow would have
// produced with ParseOptions.Filter set to name.
func (a *AtlasData) Filter(name string) *AtlasData {
	out := &AtlasData{
		ImagePath:  a.ImagePath,
		Regions:    make(map[string]Region),
		FrameCount: a.FrameCount,
		frames:     make(map[int]string),
	}
	for _, span := range a.Spans {
		if span.Name != name {
			continue
		}
		out.Spans = append(out.Spans, span)
		for i := span.Start; i <= span.End; i++ {
			frame, ok := a.frames[i]
			if !ok {
				continue
			}
			out.frames[i] = frame
			out.Regions[frame] = a.Regions[frame]
		}
	}
	return out
}

// Clone returns a deep copy.
func (a *AtlasData) Clone() *AtlasData {
	out := &AtlasData{
		ImagePath:  a.ImagePath,
		Regions:    make(map[string]Region, len(a.Regions)),
		Spans:      make([]AnimationSpan, len(a.Spans)),
		FrameCount: a.FrameCount,
		frames:     make(map[int]string, len(a.frames)),
	}
	copy(out.Spans, a.Spans)
	for k, v := range a.Regions {
		out.Regions[k] = v
	}
	for k, v := range a.frames {
		out.frames[k] = v
	}
	return out
}

// Merge copies regions and frame indices from other that a does not already
// have. Spans are not merged.
func (a *AtlasData) Merge(other *AtlasData) {
	if other == nil {
		return
	}
	if a.Regions == nil {
		a.Regions = make(map[string]Region)
	}
	if a.frames == nil {
		a.frames = make(map[int]string)
	}
	for name, r := range other.Regions {
		if _, ok := a.Regions[name]; !ok {
			a.Regions[name] = r
		}
	}
	for i, name := range other.frames {
		if _, ok := a.frames[i]; !ok {
			a.frames[i] = name
		}
	}
	if other.FrameCount > a.FrameCount {
		a.FrameCount = other.FrameCount
	}
}

// OutOfBounds returns the names of regions that extend past a w×h image.
func (a *AtlasData) OutOfBounds(w, h int) []string {
	bounds := image.Rect(0, 0, w, h)
	var names []string
	for name, r := range a.Regions {
		if !r.Rect().In(bounds) {
			names = append(names, name)
		}
	}
	return names
}

// ParseSparrow decodes a Sparrow (TextureAtlas/SubTexture) XML description.
func ParseSparrow(data []byte, opts ParseOptions) (*AtlasData, error) {
	return ParseSparrowReader(bytes.NewReader(data), opts)
}

// ParseSparrowReader is ParseSparrow over a stream. Records are consumed in
// document order; the first malformed record aborts the parse.
func ParseSparrowReader(r io.Reader, opts ParseOptions) (*AtlasData, error) {
	groupKey := opts.GroupKey
	if groupKey == nil {
		groupKey = TrimFrameCounter(DefaultCounterLength)
	}
	keep := func(anim string) bool {
		return opts.Filter == "" || opts.Filter == anim
	}

	atlas := &AtlasData{
		Regions: make(map[string]Region),
		frames:  make(map[int]string),
	}

	var (
		lastAnim string
		start    = 0
		end      = -1
		seen     = false
		depth    = 0
		inAtlas  = false
		names    = make(map[string]struct{})
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("funkin: failed to parse atlas XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1 && t.Name.Local == "TextureAtlas":
				inAtlas = true
				atlas.ImagePath = attrValue(t.Attr, "imagePath")
			case depth == 2 && inAtlas && t.Name.Local == "SubTexture":
				index := end + 1
				rec, err := readSubTexture(t.Attr, index)
				if err != nil {
					return nil, err
				}
				if _, dup := names[rec.name]; dup {
					return nil, &MalformedAtlasRecordError{Index: index, Name: rec.name, Field: "name",
						Err: errors.New("duplicate frame name")}
				}
				names[rec.name] = struct{}{}

				anim, ok := groupKey(rec.name)
				if !ok || anim == "" {
					return nil, &MalformedAtlasRecordError{Index: index, Name: rec.name, Field: "name",
						Err: errors.New("cannot derive animation name")}
				}

				if !seen {
					lastAnim = anim
					seen = true
				}
				if anim != lastAnim {
					if keep(lastAnim) {
						atlas.Spans = append(atlas.Spans, AnimationSpan{Name: lastAnim, Start: start, End: end})
					}
					start = end + 1
				}

				if keep(anim) {
					// Shift by two pixels to keep neighbouring frames from
					// bleeding into this one.
					atlas.Regions[rec.name] = Region{
						Name:   rec.name,
						X:      rec.x + rec.frameX - 2,
						Y:      rec.y + rec.frameY + 2,
						Width:  rec.width,
						Height: rec.height,
					}
					atlas.frames[index] = rec.name
				}

				lastAnim = anim
				end++
			}
		case xml.EndElement:
			if depth == 1 {
				inAtlas = false
			}
			depth--
		}
	}

	if seen && keep(lastAnim) {
		atlas.Spans = append(atlas.Spans, AnimationSpan{Name: lastAnim, Start: start, End: end})
	}
	atlas.FrameCount = end + 1
	return atlas, nil
}

// subTexture holds the resolved numeric fields of one record. When the
// record carries padding fields, width/height are the frame size.
type subTexture struct {
	name           string
	x, y           int
	frameX, frameY int
	width, height  int
}

var paddingFields = [4]string{"frameX", "frameY", "frameWidth", "frameHeight"}

func readSubTexture(attrs []xml.Attr, index int) (subTexture, error) {
	rec := subTexture{name: attrValue(attrs, "name")}
	if _, ok := lookupAttr(attrs, "name"); !ok || rec.name == "" {
		return rec, &MalformedAtlasRecordError{Index: index, Field: "name", Err: errors.New("missing")}
	}

	intField := func(field string) (int, error) {
		raw, ok := lookupAttr(attrs, field)
		if !ok {
			return 0, &MalformedAtlasRecordError{Index: index, Name: rec.name, Field: field, Err: errors.New("missing")}
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &MalformedAtlasRecordError{Index: index, Name: rec.name, Field: field, Err: err}
		}
		return v, nil
	}

	var err error
	if rec.x, err = intField("x"); err != nil {
		return rec, err
	}
	if rec.y, err = intField("y"); err != nil {
		return rec, err
	}

	padded := 0
	for _, f := range paddingFields {
		if _, ok := lookupAttr(attrs, f); ok {
			padded++
		}
	}
	if padded == 0 {
		if rec.width, err = intField("width"); err != nil {
			return rec, err
		}
		if rec.height, err = intField("height"); err != nil {
			return rec, err
		}
		return rec, nil
	}

	// A partial padding set is reported against the first absent field.
	if rec.frameX, err = intField("frameX"); err != nil {
		return rec, err
	}
	if rec.frameY, err = intField("frameY"); err != nil {
		return rec, err
	}
	if rec.width, err = intField("frameWidth"); err != nil {
		return rec, err
	}
	if rec.height, err = intField("frameHeight"); err != nil {
		return rec, err
	}
	return rec, nil
}

func lookupAttr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrValue(attrs []xml.Attr, name string) string {
	v, _ := lookupAttr(attrs, name)
	return v
}
