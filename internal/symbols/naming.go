package symbols

import (
	"fmt"
	"hash/fnv"

	"github.com/skdltmxn/codeview-go/debuginfo"
)

// Namer computes debugger display names for methods.
type Namer struct {
	entryMethod   string
	entryName     string
	hashOverloads bool
	entrySeen     bool
}

// NewNamer creates a Namer. The first method whose "Class.method" equals
// entryMethod is displayed as entryName.
func NewNamer(entryMethod, entryName string, hashOverloads bool) *Namer {
	return &Namer{entryMethod: entryMethod, entryName: entryName, hashOverloads: hashOverloads}
}

// DisplayName returns the name shown for r. With overload hashing on,
// the class-qualified name gets a suffix derived from the parameter list
// so overloads stay distinct.
func (n *Namer) DisplayName(r *debuginfo.Range) string {
	if !n.entrySeen && n.entryMethod != "" && r.FullMethodName() == n.entryMethod {
		n.entrySeen = true
		return n.entryName
	}
	name := r.ClassName() + "::" + r.MethodName()
	if n.hashOverloads {
		name += "_" + signatureHash(r.ParamSignature())
	}
	return name
}

func signatureHash(sig string) string {
	h := fnv.New32a()
	h.Write([]byte(sig))
	return fmt.Sprintf("%08x", h.Sum32())
}
