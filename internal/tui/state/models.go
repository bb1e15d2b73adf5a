package state

// ViewMode is which panel the document shows.
type ViewMode int

const (
    Unloaded ViewMode = iota // before the first load completes
    Brief
    Comment
    Diff
)

func (m ViewMode) String() string {
    switch m {
    case Brief:
        return "brief"
    case Comment:
        return "comment"
    case Diff:
        return "diff"
    default:
        return "unloaded"
    }
}

// Action is a user request that may change the view.
type Action int

const (
    ViewBrief Action = iota
    ViewComment
    ShowDiff
    Save
    Reset
    Revert
)

var actionNames = map[Action]string{
    ViewBrief:   "view-brief",
    ViewComment: "view-comment",
    ShowDiff:    "diff",
    Save:        "save",
    Reset:       "reset",
    Revert:      "revert",
}

func (a Action) String() string {
    if n, ok := actionNames[a]; ok {
        return n
    }
    return "unknown"
}

// ParseAction maps a wire name to an Action.
func ParseAction(name string) (Action, bool) {
    for a, n := range actionNames {
        if n == name {
            return a, true
        }
    }
    return 0, false
}

// Visibility lists every panel and control. Each mode defines all of them.
type Visibility struct {
    BriefPanel   bool `json:"briefPanel"`
    CommentPanel bool `json:"commentPanel"`
    DiffPanel    bool `json:"diffPanel"`

    Save    bool `json:"save"`
    Brief   bool `json:"brief"`
    Comment bool `json:"comment"`
    Diff    bool `json:"diff"`
    Reset   bool `json:"reset"`
}

// ViewState is the per-document view value the reducers operate on.
type ViewState struct {
    Mode  ViewMode
    Dirty bool

    // Notice is a short ephemeral message for the status bar.
    Notice string
}

// ParseMode maps a ViewMode name back to the mode. Unknown names are Unloaded.
func ParseMode(name string) ViewMode {
    for _, m := range []ViewMode{Brief, Comment, Diff} {
        if m.String() == name {
            return m
        }
    }
    return Unloaded
}
