package models

// UnknownUserName is shown when an owner has no profile.
const UnknownUserName = "Unknown User"

type UserProfile struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// UnknownProfile is the placeholder for a missing profile.
func UnknownProfile(id string) *UserProfile {
	return &UserProfile{ID: id, DisplayName: UnknownUserName, PhotoURL: ""}
}

// ItemWithOwner pairs an item with its owner's profile for listing pages.
type ItemWithOwner struct {
	Item
	Owner *UserProfile `json:"owner"`
}
