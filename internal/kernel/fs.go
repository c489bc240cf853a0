package kernel

// FileTable stands in for the external file-layer collaborator of §6
// (consumed): opaque file handles with reference-count semantics
// (filedup/fileclose) and the current-directory inode (idup/iput/namei).
// The real file system is out of scope (§1) — the scheduler core only
// needs something it can duplicate on fork and close out on exit.
type FileTable interface {
	// Dup returns a reference-counted duplicate, for fork (filedup/idup).
	Dup() FileTable
	// CloseAll releases every open handle and the cwd reference, for exit
	// (fileclose per fd, then iput(cwd)).
	CloseAll()
}

// openFiles is the trivial in-memory FileTable: a reference counter plus a
// cwd label, refcounted only in the sense that Dup bumps a
// shared counter so CloseAll on either copy is safe to call independently.
type openFiles struct {
	refs *int
	cwd  string
}

func newOpenFiles(cwd string) FileTable {
	n := 1
	return &openFiles{refs: &n, cwd: cwd}
}

func (f *openFiles) Dup() FileTable {
	*f.refs++
	return &openFiles{refs: f.refs, cwd: f.cwd}
}

func (f *openFiles) CloseAll() {
	if *f.refs > 0 {
		*f.refs--
	}
}
