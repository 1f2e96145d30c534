package payloads

// SingletonTypes lists content types of which at most one non-deleted
// instance may exist in the collection.
var SingletonTypes = map[ContentType]bool{
	TypeUserPrefs: true,
}

// ResolveSingletons drops all but the most recently updated instance of
// each singleton content type from items, returning the deduplicated slice
// plus the uuids that lost the race and should be deleted locally.
func ResolveSingletons(items []Item) (kept []Item, superseded []string) {
	best := make(map[ContentType]Item)
	for _, it := range items {
		if !SingletonTypes[it.ContentType()] {
			continue
		}
		cur, ok := best[it.ContentType()]
		if !ok || it.Payload().UpdatedAt.After(cur.Payload().UpdatedAt) {
			if ok {
				superseded = append(superseded, cur.UUID())
			}
			best[it.ContentType()] = it
		} else {
			superseded = append(superseded, it.UUID())
		}
	}

	supersededSet := toSet(superseded)
	for _, it := range items {
		if supersededSet[it.UUID()] {
			continue
		}
		kept = append(kept, it)
	}
	return kept, superseded
}

// RequiresPrivileges lists content types whose deletion should be gated
// behind a Privileges re-authentication challenge.
var RequiresPrivileges = map[ContentType]bool{
	TypeItemsKey: true,
}
