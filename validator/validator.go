package validator

// Validator converts a block between its in-memory and on-disk forms.
// The cache identifies validators with ==, so implementations should be
// pointers or other comparable values.
type Validator interface {
	// Prepare turns the in-memory contents of data into the on-disk form.
	// It is called just before the block at address block is written.
	Prepare(data []byte, block uint64)

	// Check validates the on-disk form just read into data for the block at
	// address block. A non-nil error leaves the block unusable under this
	// validator.
	Check(data []byte, block uint64) error
}

type noop struct{}

func (noop) Prepare([]byte, uint64)     {}
func (noop) Check([]byte, uint64) error { return nil }

// Noop performs no transformation and accepts every block.
var Noop Validator = noop{}
