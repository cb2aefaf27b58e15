package domain

import (
	"fmt"
	"strings"

	apperrors "zerox/internal/errors"
)

type PrintType string

const (
	PrintTypeBW    PrintType = "BW"
	PrintTypeColor PrintType = "COLOR"
)

type PaperSize string

const (
	PaperSizeA4 PaperSize = "A4"
	PaperSizeA3 PaperSize = "A3"
)

type Sides string

const (
	SidesSingle Sides = "single"
	SidesDouble Sides = "double"
)

const (
	MaxFilesPerOrder = 50
	MaxPagesPerFile  = 10000
	MaxCopiesPerFile = 1000
	maxFileNameLen   = 255
)

func ParsePrintType(s string) (PrintType, bool) {
	switch pt := PrintType(strings.ToUpper(strings.TrimSpace(s))); pt {
	case PrintTypeBW, PrintTypeColor:
		return pt, true
	}
	return "", false
}

func ParsePaperSize(s string) (PaperSize, bool) {
	switch ps := PaperSize(strings.ToUpper(strings.TrimSpace(s))); ps {
	case PaperSizeA4, PaperSizeA3:
		return ps, true
	}
	return "", false
}

func ParseSides(s string) (Sides, bool) {
	switch sd := Sides(s); sd {
	case SidesSingle, SidesDouble:
		return sd, true
	}
	return "", false
}

// OrderFile is a value: once attached to an order it is never changed.
type OrderFile struct {
	StorageKey string
	FileName   string
	Pages      int
	PrintType  PrintType
	PaperSize  PaperSize
	Copies     int
	Sides      Sides
}

func (f OrderFile) RateKey() RateKey {
	return RateKey{PrintType: f.PrintType, PaperSize: f.PaperSize}
}

// FileSpec is the unvalidated, still editable configuration of one file.
type FileSpec struct {
	StorageKey string
	FileName   string
	Pages      int
	PrintType  string
	PaperSize  string
	Copies     int
	Sides      string
}

// ManifestBuilder collects file configuration before an order exists. Build
// validates everything at once and yields immutable OrderFile values.
type ManifestBuilder struct {
	specs []FileSpec
}

func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{}
}

func (b *ManifestBuilder) Add(spec FileSpec) int {
	b.specs = append(b.specs, spec)
	return len(b.specs) - 1
}

func (b *ManifestBuilder) Len() int {
	return len(b.specs)
}

func (b *ManifestBuilder) Remove(idx int) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.specs = append(b.specs[:idx], b.specs[idx+1:]...)
	return nil
}

func (b *ManifestBuilder) SetPages(idx, pages int) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.specs[idx].Pages = pages
	return nil
}

func (b *ManifestBuilder) SetCopies(idx, copies int) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.specs[idx].Copies = copies
	return nil
}

func (b *ManifestBuilder) SetPrintConfig(idx int, printType, paperSize, sides string) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.specs[idx].PrintType = printType
	b.specs[idx].PaperSize = paperSize
	b.specs[idx].Sides = sides
	return nil
}

func (b *ManifestBuilder) checkIndex(idx int) error {
	if idx < 0 || idx >= len(b.specs) {
		return apperrors.NewValidationError(fmt.Sprintf("file index %d out of range", idx))
	}
	return nil
}

func (b *ManifestBuilder) Build() ([]OrderFile, error) {
	if len(b.specs) == 0 {
		return nil, apperrors.NewEmptyOrderError()
	}

	var details []apperrors.ValidationDetail
	if len(b.specs) > MaxFilesPerOrder {
		details = append(details, apperrors.ValidationDetail{
			Field:   "files",
			Message: fmt.Sprintf("files exceeds maximum of %d", MaxFilesPerOrder),
		})
	}

	files := make([]OrderFile, 0, len(b.specs))
	seenKeys := make(map[string]bool, len(b.specs))

	for idx, spec := range b.specs {
		field := func(name string) string {
			return fmt.Sprintf("files[%d].%s", idx, name)
		}
		add := func(name, message string) {
			details = append(details, apperrors.ValidationDetail{Field: field(name), Message: message})
		}

		key := strings.TrimSpace(spec.StorageKey)
		if key == "" {
			add("storageKey", "storageKey is required")
		} else if seenKeys[key] {
			add("storageKey", "storageKey must not be duplicated")
		}
		seenKeys[key] = true

		name := strings.TrimSpace(spec.FileName)
		if name == "" || len(name) > maxFileNameLen {
			add("fileName", fmt.Sprintf("fileName must be between 1 and %d characters", maxFileNameLen))
		}

		if spec.Pages < 1 || spec.Pages > MaxPagesPerFile {
			add("pages", fmt.Sprintf("pages must be between 1 and %d", MaxPagesPerFile))
		}

		if spec.Copies < 1 || spec.Copies > MaxCopiesPerFile {
			add("copies", fmt.Sprintf("copies must be between 1 and %d", MaxCopiesPerFile))
		}

		printType, ok := ParsePrintType(spec.PrintType)
		if !ok {
			add("printType", "printType must be one of BW, COLOR")
		}

		paperSize, ok := ParsePaperSize(spec.PaperSize)
		if !ok {
			add("paperSize", "paperSize must be one of A4, A3")
		}

		sides, ok := ParseSides(spec.Sides)
		if !ok {
			add("sides", "sides must be one of single, double")
		}

		files = append(files, OrderFile{
			StorageKey: key,
			FileName:   name,
			Pages:      spec.Pages,
			PrintType:  printType,
			PaperSize:  paperSize,
			Copies:     spec.Copies,
			Sides:      sides,
		})
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	return files, nil
}
