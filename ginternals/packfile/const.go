package packfile

const (
	// ExtPackfile is the file extension of a packfile.
	ExtPackfile = ".pack"
	// ExtIndex is the file extension of a pack's companion index.
	ExtIndex = ".idx"
)
