package epub

import "errors"

// Fatal parse failures. Everything else in the pipeline degrades per item;
// these three abort the whole import.
var (
	// ErrMalformedContainer indicates META-INF/container.xml is absent or
	// cannot be parsed.
	ErrMalformedContainer = errors.New("malformed container: META-INF/container.xml missing or unparsable")

	// ErrMissingPackageDocument indicates the container points at no package
	// document, or the package document is unreadable.
	ErrMissingPackageDocument = errors.New("missing package document")

	// ErrEmptySpine indicates the package document yielded no readable spine
	// entries.
	ErrEmptySpine = errors.New("empty spine: no readable content")
)
