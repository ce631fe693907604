package content

import _ "embed"

//go:embed sample_library.yaml
var sampleLibraryYAML []byte

// SampleLibrary returns the embedded demonstration library.
func SampleLibrary() (*Library, error) {
	return ParseLibrary(sampleLibraryYAML)
}
