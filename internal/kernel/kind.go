// Package kernel reads the comment area and brief summary of binary SPICE
// kernels through the NAIF command-line utilities.
package kernel

import (
	"path/filepath"
	"strings"
)

// Kind is a recognized binary kernel type, chosen by file extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindSPK          // .bsp ephemeris
	KindPCK          // .bpc binary planetary constants
	KindDSK          // .bds digital shape
	KindCK           // .bc attitude
)

// Tool names under the utilities root.
const (
	ToolCommnt   = "commnt"
	ToolBrief    = "brief"
	ToolDSKBrief = "dskbrief"
	ToolCKBrief  = "ckbrief"
)

func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bsp":
		return KindSPK
	case ".bpc":
		return KindPCK
	case ".bds":
		return KindDSK
	case ".bc":
		return KindCK
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindSPK:
		return "spk"
	case KindPCK:
		return "pck"
	case KindDSK:
		return "dsk"
	case KindCK:
		return "ck"
	default:
		return "unknown"
	}
}

// BriefTool returns the utility that summarizes this kind, or "".
func (k Kind) BriefTool() string {
	switch k {
	case KindSPK, KindPCK:
		return ToolBrief
	case KindDSK:
		return ToolDSKBrief
	case KindCK:
		return ToolCKBrief
	default:
		return ""
	}
}
