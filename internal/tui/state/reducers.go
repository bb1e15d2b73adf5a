package state

import (
    "errors"
    "fmt"
)

// ErrActionUnavailable is returned when an action's control is not
// reachable in the current state.
var ErrActionUnavailable = errors.New("action not available")

// Visible is the fixed visibility table. It depends only on mode and dirty.
func Visible(mode ViewMode, dirty bool) Visibility {
    switch mode {
    case Comment:
        return Visibility{
            CommentPanel: true,
            Brief:        true,
            Save:         dirty,
            Diff:         dirty,
            Reset:        dirty,
        }
    case Brief:
        return Visibility{
            BriefPanel: true,
            Comment:    true,
        }
    case Diff:
        return Visibility{
            DiffPanel: true,
            Save:      true,
            Comment:   true,
        }
    default:
        return Visibility{}
    }
}

// Allowed reports whether a is reachable from s.
func Allowed(s ViewState, a Action) bool {
    v := Visible(s.Mode, s.Dirty)
    switch a {
    case ViewBrief:
        return v.Brief
    case ViewComment:
        return v.Comment
    case ShowDiff:
        return v.Diff
    case Save:
        return v.Save
    case Reset:
        return v.Reset
    case Revert:
        return s.Mode == Comment || s.Mode == Brief
    default:
        return false
    }
}

// Apply performs the view transition for a. Save and Revert only check
// reachability here; their transition happens through Saved and Reverted
// once the operation succeeds.
func Apply(s ViewState, a Action) (ViewState, error) {
    if !Allowed(s, a) {
        return s, fmt.Errorf("%s from %s: %w", a, s.Mode, ErrActionUnavailable)
    }
    s.Notice = ""
    switch a {
    case ViewBrief:
        s.Mode = Brief
    case ViewComment:
        s.Mode = Comment
    case ShowDiff:
        s.Mode = Diff
    case Reset:
        s.Dirty = false
        s.Notice = "Changes discarded"
    }
    return s, nil
}

// Loaded enters Comment mode once the first extraction is done.
func Loaded(s ViewState) ViewState {
    s.Mode = Comment
    s.Dirty = false
    return s
}

// Edited records the dirty flag after a buffer change.
func Edited(s ViewState, dirty bool) ViewState {
    s.Dirty = dirty
    return s
}

// Saved returns to Comment with a clean buffer.
func Saved(s ViewState) ViewState {
    s.Mode = Comment
    s.Dirty = false
    s.Notice = "Comment saved"
    return s
}

func Reverted(s ViewState) ViewState {
    s.Mode = Comment
    s.Dirty = false
    s.Notice = "Reloaded from file"
    return s
}
