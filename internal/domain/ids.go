package domain

// SubjectID is the authenticated identity issued by the identity service (the JWT "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// ProfileID is the identifier of a member profile record.
type ProfileID string

// PlanID is the identifier of a membership plan record.
type PlanID string
