package model

// CompileRequest is a single contract compilation request.
type CompileRequest struct {
	// Contract is the Sway source text of the main file.
	Contract string `json:"contract"`
	// Toolchain names the fuelup toolchain to build with (e.g. "latest", "beta-5").
	// An empty value selects the configured default toolchain.
	Toolchain string `json:"toolchain" validate:"omitempty,max=64,toolchain"`
}

// CompileResponse carries either the build artifacts or a compile error.
// Exactly one of the artifact fields and Error is populated; ForcVersion is set
// in both outcomes once a toolchain was selected.
type CompileResponse struct {
	// Abi is the cleaned ABI json text.
	Abi string `json:"abi"`
	// Bytecode is the hex-encoded contract bytecode without a 0x prefix.
	Bytecode string `json:"bytecode"`
	// StorageSlots is the cleaned storage-slot json text.
	StorageSlots string `json:"storage_slots"`
	// ForcVersion is the version reported by the selected forc binary.
	ForcVersion string `json:"forc_version"`
	// Error is the cleaned compiler diagnostic, empty when the build succeeded.
	Error string `json:"error,omitempty"`
}

// Failed returns true if the response carries a compile error rather than artifacts.
func (r *CompileResponse) Failed() bool {
	return r.Error != ""
}

// NewErrorResponse returns a response holding only the given error message and forc version.
func NewErrorResponse(message, forcVersion string) *CompileResponse {
	return &CompileResponse{
		ForcVersion: forcVersion,
		Error:       message,
	}
}
