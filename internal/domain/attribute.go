package domain

// AttributeOptionGroup groups the selectable options of one catalog attribute
// (for example "Color").
type AttributeOptionGroup struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// AttributeOption is one value of a group, scoped to a product class.
type AttributeOption struct {
	ID             int64  `json:"id"`
	ProductClassID int64  `json:"product_class_id"`
	GroupID        int64  `json:"group_id"`
	Name           string `json:"name"`
}

// AttributeOptionGroupValue links a product to the option it has in a group.
// There is at most one per (product, group).
type AttributeOptionGroupValue struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	GroupID   int64            `json:"group_id"`
	OptionID  int64            `json:"option_id"`
	Option    *AttributeOption `json:"option,omitempty"`
}

// CarouselImage is an image attached to an object's carousel.
type CarouselImage struct {
	ID       int64     `json:"id"`
	Object   ObjectRef `json:"object"`
	Image    string    `json:"image"`
	Position int       `json:"position"`
}
