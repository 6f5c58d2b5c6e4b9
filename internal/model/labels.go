package model

const (
	// MainFileName is the name of the single source file of a staged project.
	MainFileName = "main.sw"

	// MainFileMarker locates the first diagnostic about the main source file in forc's stderr.
	MainFileMarker = "/" + MainFileName + ":"

	// ProjectName is the package name written to every generated manifest. forc names the
	// build artifacts after it.
	ProjectName = "swaypad"

	// ManifestFileName is the forc project manifest.
	ManifestFileName = "Forc.toml"

	// ToolchainOverrideFileName pins a fuelup toolchain for a single project directory.
	ToolchainOverrideFileName = "fuel-toolchain.toml"

	// SourceDir is the directory holding the main source file, relative to the project root.
	SourceDir = "src"

	// ArtifactDir is where forc writes debug build output, relative to the project root.
	ArtifactDir = "out/debug"

	// AbiArtifact is the ABI json produced by a successful build.
	AbiArtifact = ProjectName + "-abi.json"

	// BytecodeArtifact is the raw bytecode produced by a successful build.
	BytecodeArtifact = ProjectName + ".bin"

	// StorageSlotsArtifact is the storage-slot layout produced by a successful build.
	StorageSlotsArtifact = ProjectName + "-storage_slots.json"

	// ProjectPlaceholder stands in for a staged project directory or ID in text returned to callers.
	ProjectPlaceholder = "<project>"

	// NoContractError is returned to callers that submit an empty contract.
	NoContractError = "No contract."
)
