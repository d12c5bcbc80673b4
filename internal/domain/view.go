package domain

import "github.com/ethereum/go-ethereum/common"

// ViewKind selects a membership predicate over tokens.
type ViewKind string

const (
	// ViewPublic includes every token currently listed or under auction on
	// the marketplace, regardless of seller.
	ViewPublic ViewKind = "public"
	// ViewOwned includes tokens held by the subject actor plus the actor's
	// own active listings and auctions.
	ViewOwned ViewKind = "owned"
)

// View identifies one reconciled read model: the public marketplace, or one
// actor's holdings. Each view owns its own snapshot and refresh cadence.
type View struct {
	Kind  ViewKind
	Actor common.Address // subject; zero for the public view
}

// PublicView returns the marketplace-wide view.
func PublicView() View { return View{Kind: ViewPublic} }

// OwnedView returns the holdings view for the given actor.
func OwnedView(actor common.Address) View {
	return View{Kind: ViewOwned, Actor: actor}
}

// Key returns a stable identifier usable as a map key or log attribute.
func (v View) Key() string {
	if v.Kind == ViewOwned {
		return "owned:" + v.Actor.Hex()
	}
	return "public"
}
