package models

// SearchFilter selects password entries. Query matches case-insensitively as
// a substring of site, username, notes, or any tag; Tags matches entries
// carrying all of the given tags. Results are ordered by updated_at
// descending, tie-broken by id ascending.
type SearchFilter struct {
	Query        string
	Tags         []string
	FavoriteOnly bool
}

// SecretFilter selects typed secrets. Query matches name, description, or
// any tag; Type narrows to one discriminator; Environment and Project match
// exactly when non-empty.
type SecretFilter struct {
	Query        string
	Type         SecretType
	Tags         []string
	FavoriteOnly bool
	Environment  string
	Project      string
}
