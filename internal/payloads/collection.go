package payloads

// Collection is an ordered, indexed container of current items keyed by
// uuid, with a secondary index by content type.
type Collection struct {
	byUUID  map[string]Item
	byType  map[ContentType]map[string]struct{}
	order   []string
}

func NewCollection() *Collection {
	return &Collection{
		byUUID: make(map[string]Item),
		byType: make(map[ContentType]map[string]struct{}),
	}
}

// Upsert inserts or replaces the item for its uuid.
func (c *Collection) Upsert(item Item) {
	uuid := item.UUID()
	if old, ok := c.byUUID[uuid]; ok {
		c.unindexType(old)
	} else {
		c.order = append(c.order, uuid)
	}
	c.byUUID[uuid] = item
	c.indexType(item)
}

// Remove deletes uuid from the collection entirely.
func (c *Collection) Remove(uuid string) {
	old, ok := c.byUUID[uuid]
	if !ok {
		return
	}
	c.unindexType(old)
	delete(c.byUUID, uuid)
	c.order = removeString(c.order, uuid)
}

// Get returns the item for uuid, if present.
func (c *Collection) Get(uuid string) (Item, bool) {
	item, ok := c.byUUID[uuid]
	return item, ok
}

// All returns every item, in insertion order.
func (c *Collection) All() []Item {
	out := make([]Item, 0, len(c.order))
	for _, uuid := range c.order {
		out = append(out, c.byUUID[uuid])
	}
	return out
}

// ByType returns every item of the given content type, in insertion order.
func (c *Collection) ByType(ct ContentType) []Item {
	set := c.byType[ct]
	out := make([]Item, 0, len(set))
	for _, uuid := range c.order {
		if _, ok := set[uuid]; ok {
			out = append(out, c.byUUID[uuid])
		}
	}
	return out
}

// Len returns the number of items in the collection.
func (c *Collection) Len() int { return len(c.byUUID) }

func (c *Collection) indexType(item Item) {
	ct := item.ContentType()
	if c.byType[ct] == nil {
		c.byType[ct] = make(map[string]struct{})
	}
	c.byType[ct][item.UUID()] = struct{}{}
}

func (c *Collection) unindexType(item Item) {
	ct := item.ContentType()
	if set := c.byType[ct]; set != nil {
		delete(set, item.UUID())
	}
}
