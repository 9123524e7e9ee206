// Package metadata extracts EXIF capture fields from image bytes and
// reduces them to a provenance signal. Extraction failure is not an
// error: a buffer with no readable EXIF is itself evidence, so every
// path degrades to an empty Info instead of propagating a fault.
package metadata

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// cameraFields are the EXIF tags whose presence indicates the file
// came out of real capture hardware.
var cameraFields = []exif.FieldName{
	exif.Make,
	exif.Model,
	exif.ExposureTime,
	exif.ISOSpeedRatings,
}

// Info is the extracted metadata view for one image.
type Info struct {
	// HasCameraFields is true iff at least one camera/hardware tag is
	// present and non-empty.
	HasCameraFields bool
	// Fields is a flat dump of every decoded tag, for the report.
	Fields map[string]string
}

// Extract parses EXIF from image bytes. It never returns an error;
// unreadable or absent metadata yields an Info with no fields.
func Extract(data []byte) Info {
	info := Info{Fields: map[string]string{}}
	if len(data) == 0 {
		return info
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return info
	}

	walker := &fieldDump{fields: info.Fields}
	_ = x.Walk(walker)

	for _, name := range cameraFields {
		tag, err := x.Get(name)
		if err != nil || tag == nil {
			continue
		}
		if strings.TrimSpace(tagValue(tag)) != "" {
			info.HasCameraFields = true
			break
		}
	}

	return info
}

type fieldDump struct {
	fields map[string]string
}

func (d *fieldDump) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	if v := strings.TrimSpace(tagValue(tag)); v != "" {
		d.fields[string(name)] = v
	}
	return nil
}

func tagValue(tag *tiff.Tag) string {
	if s, err := tag.StringVal(); err == nil {
		return s
	}
	return strings.Trim(tag.String(), `"`)
}
