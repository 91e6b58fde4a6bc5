package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
)

// MemoryStore is an in-memory Store. Every read returns a copy, so callers
// observe the same detached-object semantics as with PostgresStore.
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]int64
	now func() time.Time

	products     map[int64]*domain.Product
	categories   map[int64]*domain.Category
	currencies   map[string]domain.Currency
	taxRatios    []domain.TaxRatio
	priceLevels  map[int64]domain.PriceLevel
	prices       []domain.Price
	oldPrices    []domain.OldPrice
	groups       map[int64]domain.AttributeOptionGroup
	options      []domain.AttributeOption
	optionValues []domain.AttributeOptionGroupValue
	images       []domain.CarouselImage
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:         make(map[string]int64),
		now:         time.Now,
		products:    make(map[int64]*domain.Product),
		categories:  make(map[int64]*domain.Category),
		currencies:  make(map[string]domain.Currency),
		priceLevels: make(map[int64]domain.PriceLevel),
		groups:      make(map[int64]domain.AttributeOptionGroup),
	}
}

func (s *MemoryStore) nextID(kind string) int64 {
	s.ids[kind]++
	return s.ids[kind]
}

// --- Reference data ---

// AddCurrency registers a currency code.
func (s *MemoryStore) AddCurrency(code string) domain.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Currency{ID: s.nextID("currency"), Code: code}
	s.currencies[code] = c
	return c
}

// AddTaxRatio registers a tax percentage.
func (s *MemoryStore) AddTaxRatio(percentage decimal.Decimal) domain.TaxRatio {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.TaxRatio{ID: s.nextID("tax_ratio"), Percentage: percentage}
	s.taxRatios = append(s.taxRatios, t)
	return t
}

// AddPriceLevel registers a price tier.
func (s *MemoryStore) AddPriceLevel(name string) domain.PriceLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := domain.PriceLevel{ID: s.nextID("price_level"), Name: name}
	s.priceLevels[l.ID] = l
	return l
}

// AddOptionGroup registers an attribute option group.
func (s *MemoryStore) AddOptionGroup(name string, active bool) domain.AttributeOptionGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := domain.AttributeOptionGroup{ID: s.nextID("option_group"), Name: name, IsActive: active}
	s.groups[g.ID] = g
	return g
}

// AddCategory stores a category and returns it with its id set.
func (s *MemoryStore) AddCategory(c domain.Category) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID("category")
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.categories[c.ID] = &c
	cp := c
	return &cp
}

// --- ProductStorer ---

func (s *MemoryStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return s.load(p), nil
}

func (s *MemoryStore) GetProductBySlug(ctx context.Context, lang, slug string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.sortedProducts() {
		if t, ok := p.Translations[lang]; ok && t.Slug == slug {
			return s.load(p), nil
		}
	}
	return nil, ErrProductNotFound
}

func (s *MemoryStore) SlugExists(ctx context.Context, lang, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slugOwner(lang, slug) != 0, nil
}

func (s *MemoryStore) slugOwner(lang, slug string) int64 {
	for _, p := range s.sortedProducts() {
		if t, ok := p.Translations[lang]; ok && t.Slug == slug {
			return p.ID
		}
	}
	return 0
}

func (s *MemoryStore) FindProducts(ctx context.Context, filter Filter) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Product
	for _, p := range s.sortedProducts() {
		ok, err := matches(p, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s.load(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) FindProductsIn(ctx context.Context, attribute string, values []any) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		if v != nil {
			wanted[fmt.Sprint(v)] = true
		}
	}
	var out []*domain.Product
	for _, p := range s.sortedProducts() {
		v, err := p.Attr(attribute)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, attribute)
		}
		if v != nil && wanted[fmt.Sprint(v)] {
			out = append(out, s.load(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, params ListProductsParams) ([]*domain.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*domain.Product
	for _, p := range s.sortedProducts() {
		if params.IsActive != nil && p.IsActive != *params.IsActive {
			continue
		}
		all = append(all, p)
	}
	total := len(all)
	if params.Offset >= total {
		return []*domain.Product{}, total, nil
	}
	all = all[params.Offset:]
	if params.Limit > 0 && params.Limit < len(all) {
		all = all[:params.Limit]
	}
	out := make([]*domain.Product, len(all))
	for i, p := range all {
		out[i] = s.load(p)
	}
	return out, total, nil
}

func (s *MemoryStore) SaveProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProduct(product)
}

func (s *MemoryStore) saveProduct(product *domain.Product) error {
	if product.SKU != "" {
		for _, p := range s.products {
			if p.SKU == product.SKU && p.ID != product.ID {
				return ErrProductSKUExists
			}
		}
	}
	for lang, t := range product.Translations {
		if t.Slug == "" {
			continue
		}
		if owner := s.slugOwner(lang, t.Slug); owner != 0 && owner != product.ID {
			return fmt.Errorf("%w: %s/%s", ErrSlugExists, lang, t.Slug)
		}
	}

	now := s.now()
	stored := cloneProduct(product)
	if product.ID == 0 {
		product.ID = s.nextID("product")
		product.CreatedAt = now
		stored.ID = product.ID
		stored.CreatedAt = now
	} else {
		existing, ok := s.products[product.ID]
		if !ok {
			return ErrProductNotFound
		}
		stored.ParentID = existing.ParentID
		stored.Path, stored.Depth, stored.NumChild = existing.Path, existing.Depth, existing.NumChild
	}
	product.UpdatedAt = now
	stored.UpdatedAt = now
	stored.Category = nil
	stored.CarouselImages = nil
	for _, t := range product.Translations {
		t.MasterID = product.ID
		if t.ID == 0 {
			t.ID = s.nextID("translation")
		}
	}
	stored.Translations = cloneTranslations(product.Translations)
	s.products[stored.ID] = stored
	return nil
}

// --- ObjectSaver / TranslationSaver ---

func (s *MemoryStore) SaveObject(ctx context.Context, obj domain.Entity) error {
	switch o := obj.(type) {
	case *domain.Product:
		return s.SaveProduct(ctx, o)
	case *domain.Category:
		s.mu.Lock()
		defer s.mu.Unlock()
		if o.ID == 0 {
			o.ID = s.nextID("category")
			o.CreatedAt = s.now()
		}
		o.UpdatedAt = s.now()
		cp := *o
		s.categories[o.ID] = &cp
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
	}
}

// SaveTranslation writes the satellite right away when its product is
// saved; satellites of unsaved products are written by SaveProduct.
func (s *MemoryStore) SaveTranslation(ctx context.Context, owner domain.Entity, satellite domain.Satellite) error {
	p, ok := owner.(*domain.Product)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, owner)
	}
	t, ok := satellite.(*domain.ProductTranslation)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, satellite)
	}
	if p.ID == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.products[p.ID]
	if !ok {
		return ErrProductNotFound
	}
	if t.Slug != "" {
		if other := s.slugOwner(t.LanguageCode, t.Slug); other != 0 && other != p.ID {
			return fmt.Errorf("%w: %s/%s", ErrSlugExists, t.LanguageCode, t.Slug)
		}
	}
	t.MasterID = p.ID
	if t.ID == 0 {
		t.ID = s.nextID("translation")
	}
	if stored.Translations == nil {
		stored.Translations = make(map[string]*domain.ProductTranslation)
	}
	cp := *t
	stored.Translations[t.LanguageCode] = &cp
	return nil
}

// --- TreeStorer ---

func (s *MemoryStore) ParentOf(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.products[product.ID]
	if !ok || stored.ParentID == nil {
		return nil, nil
	}
	parent, ok := s.products[*stored.ParentID]
	if !ok {
		return nil, nil
	}
	return s.load(parent), nil
}

func (s *MemoryStore) ChildrenOf(ctx context.Context, parent *domain.Product) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Product
	for _, p := range s.childrenOf(parent.ID) {
		out = append(out, s.load(p))
	}
	return out, nil
}

func (s *MemoryStore) childrenOf(id int64) []*domain.Product {
	if id == 0 {
		return nil
	}
	var out []*domain.Product
	for _, p := range s.products {
		if p.ParentID != nil && *p.ParentID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) AddRoot(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID != 0 {
		if stored, ok := s.products[product.ID]; ok && stored.Path != "" {
			return ErrAlreadyInTree
		}
	}
	if err := s.ensureSaved(product); err != nil {
		return err
	}
	last := 0
	for _, p := range s.products {
		if p.Depth == 1 && lastStep(p.Path) > last {
			last = lastStep(p.Path)
		}
	}
	s.place(product, nil, pathStep(last+1))
	return nil
}

func (s *MemoryStore) AddChild(ctx context.Context, parent, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storedParent, ok := s.products[parent.ID]
	if !ok {
		return ErrProductNotFound
	}
	if storedParent.Path == "" {
		return ErrNotInTree
	}
	if product.ID != 0 {
		if stored, ok := s.products[product.ID]; ok && (stored.Path != "" || stored.ParentID != nil) {
			return ErrAlreadyInTree
		}
	}
	if err := s.ensureSaved(product); err != nil {
		return err
	}
	s.place(product, storedParent, storedParent.Path+pathStep(s.lastChildStep(storedParent)+1))
	storedParent.NumChild++
	parent.NumChild = storedParent.NumChild
	return nil
}

func (s *MemoryStore) Move(ctx context.Context, product, target *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.products[product.ID]
	if !ok {
		return ErrProductNotFound
	}
	dest, ok := s.products[target.ID]
	if !ok {
		return ErrProductNotFound
	}
	if node.Path == "" || dest.Path == "" {
		return ErrNotInTree
	}
	if dest.ID == node.ID || strings.HasPrefix(dest.Path, node.Path) {
		return ErrInvalidMove
	}
	var oldParent *domain.Product
	if node.ParentID != nil {
		oldParent = s.products[*node.ParentID]
	}
	for _, p := range []*domain.Product{node, dest, oldParent} {
		if p != nil && !s.indexConsistent(p) {
			return ErrStaleTreeIndex
		}
	}

	newPath := dest.Path + pathStep(s.lastChildStep(dest)+1)
	if oldParent != nil {
		oldParent.NumChild--
	}
	s.rewriteSubtree(node, newPath)
	destID := dest.ID
	node.ParentID = &destID
	dest.NumChild++

	product.ParentID = copyInt64(&destID)
	product.Path, product.Depth = node.Path, node.Depth
	target.NumChild = dest.NumChild
	return nil
}

func (s *MemoryStore) FixTree(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]treeNode, 0, len(s.products))
	for _, p := range s.products {
		nodes = append(nodes, treeNode{ID: p.ID, ParentID: p.ParentID, Path: p.Path})
	}
	for id, pl := range rebuildIndex(nodes) {
		p := s.products[id]
		p.Path, p.Depth, p.NumChild = pl.Path, pl.Depth, pl.NumChild
	}
	return nil
}

func (s *MemoryStore) ensureSaved(product *domain.Product) error {
	if product.ID != 0 {
		if _, ok := s.products[product.ID]; ok {
			return nil
		}
	}
	product.ID = 0
	return s.saveProduct(product)
}

// place writes tree columns for product, both on the stored copy and on
// the caller's object.
func (s *MemoryStore) place(product, parent *domain.Product, path string) {
	stored := s.products[product.ID]
	var parentID *int64
	if parent != nil {
		id := parent.ID
		parentID = &id
	}
	stored.ParentID, stored.Path, stored.Depth = parentID, path, pathDepth(path)
	product.ParentID, product.Path, product.Depth = copyInt64(parentID), path, pathDepth(path)
	product.NumChild = stored.NumChild
}

func (s *MemoryStore) lastChildStep(parent *domain.Product) int {
	last := 0
	for _, c := range s.childrenOf(parent.ID) {
		if parentPath(c.Path) == parent.Path && lastStep(c.Path) > last {
			last = lastStep(c.Path)
		}
	}
	return last
}

func (s *MemoryStore) rewriteSubtree(node *domain.Product, newPath string) {
	oldPath := node.Path
	for _, p := range s.products {
		if p.Path != "" && strings.HasPrefix(p.Path, oldPath) {
			p.Path = rebase(p.Path, oldPath, newPath)
			p.Depth = pathDepth(p.Path)
		}
	}
}

// indexConsistent checks that the materialized path of p agrees with its
// parent link and that NumChild matches the real number of children.
func (s *MemoryStore) indexConsistent(p *domain.Product) bool {
	if len(s.childrenOf(p.ID)) != p.NumChild {
		return false
	}
	if p.ParentID == nil {
		return pathDepth(p.Path) == 1
	}
	parent, ok := s.products[*p.ParentID]
	return ok && parentPath(p.Path) == parent.Path && p.Depth == parent.Depth+1
}

// --- PriceStorer ---

func (s *MemoryStore) GetPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey) (*domain.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prices {
		if priceMatches(p, obj, key) {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrPriceNotFound
}

func (s *MemoryStore) UpsertPrice(ctx context.Context, obj domain.ObjectRef, key domain.PriceKey, amount decimal.Decimal) (*domain.Price, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPriceKey(obj, key.Currency, key.TaxRatio); err != nil {
		return nil, false, err
	}
	if key.PriceLevelID != nil {
		if _, ok := s.priceLevels[*key.PriceLevelID]; !ok {
			return nil, false, ErrPriceLevelNotFound
		}
	}
	now := s.now()
	for i, p := range s.prices {
		if priceMatches(p, obj, key) {
			s.prices[i].PriceExcludingTax = amount
			s.prices[i].UpdatedAt = now
			cp := s.prices[i]
			return &cp, false, nil
		}
	}
	p := domain.Price{
		ID:                s.nextID("price"),
		Object:            obj,
		Currency:          key.Currency,
		TaxRatio:          key.TaxRatio,
		PriceLevelID:      copyInt64(key.PriceLevelID),
		PriceExcludingTax: amount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.prices = append(s.prices, p)
	return &p, true, nil
}

func (s *MemoryStore) checkPriceKey(obj domain.ObjectRef, currency string, taxRatio decimal.Decimal) error {
	if !obj.Saved() {
		return ErrUnsavedObject
	}
	if _, ok := s.currencies[currency]; !ok {
		return fmt.Errorf("%w: %s", ErrCurrencyNotFound, currency)
	}
	for _, t := range s.taxRatios {
		if t.Percentage.Equal(taxRatio) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTaxRatioNotFound, taxRatio)
}

func priceMatches(p domain.Price, obj domain.ObjectRef, key domain.PriceKey) bool {
	if p.Object != obj || p.Currency != key.Currency || !p.TaxRatio.Equal(key.TaxRatio) {
		return false
	}
	if p.PriceLevelID == nil || key.PriceLevelID == nil {
		return p.PriceLevelID == nil && key.PriceLevelID == nil
	}
	return *p.PriceLevelID == *key.PriceLevelID
}

// Prices returns every stored price fact of obj.
func (s *MemoryStore) Prices(obj domain.ObjectRef) []domain.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Price
	for _, p := range s.prices {
		if p.Object == obj {
			out = append(out, p)
		}
	}
	return out
}

// --- OldPriceStorer ---

func (s *MemoryStore) GetOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal) (*domain.OldPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.oldPrices {
		if p.Object == obj && p.Currency == currency && p.TaxRatio.Equal(taxRatio) {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrPriceNotFound
}

func (s *MemoryStore) UpsertOldPrice(ctx context.Context, obj domain.ObjectRef, currency string, taxRatio decimal.Decimal, amount decimal.Decimal) (*domain.OldPrice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPriceKey(obj, currency, taxRatio); err != nil {
		return nil, false, err
	}
	now := s.now()
	for i, p := range s.oldPrices {
		if p.Object == obj && p.Currency == currency && p.TaxRatio.Equal(taxRatio) {
			s.oldPrices[i].PriceExcludingTax = amount
			s.oldPrices[i].UpdatedAt = now
			cp := s.oldPrices[i]
			return &cp, false, nil
		}
	}
	p := domain.OldPrice{
		ID:                s.nextID("old_price"),
		Object:            obj,
		Currency:          currency,
		TaxRatio:          taxRatio,
		PriceExcludingTax: amount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.oldPrices = append(s.oldPrices, p)
	return &p, true, nil
}

// --- AttributeStorer ---

func (s *MemoryStore) GetOptionGroup(ctx context.Context, id int64, active bool) (*domain.AttributeOptionGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok || g.IsActive != active {
		return nil, ErrOptionGroupNotFound
	}
	return &g, nil
}

func (s *MemoryStore) GetOrCreateOption(ctx context.Context, productClassID, groupID int64, name string) (*domain.AttributeOption, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.options {
		if o.ProductClassID == productClassID && o.GroupID == groupID && o.Name == name {
			cp := o
			return &cp, false, nil
		}
	}
	o := domain.AttributeOption{ID: s.nextID("option"), ProductClassID: productClassID, GroupID: groupID, Name: name}
	s.options = append(s.options, o)
	return &o, true, nil
}

func (s *MemoryStore) UpsertOptionValue(ctx context.Context, productID, groupID, optionID int64) (*domain.AttributeOptionGroupValue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if productID == 0 {
		return nil, false, ErrUnsavedObject
	}
	for i, v := range s.optionValues {
		if v.ProductID == productID && v.GroupID == groupID {
			s.optionValues[i].OptionID = optionID
			cp := s.optionValues[i]
			return &cp, false, nil
		}
	}
	v := domain.AttributeOptionGroupValue{ID: s.nextID("option_value"), ProductID: productID, GroupID: groupID, OptionID: optionID}
	s.optionValues = append(s.optionValues, v)
	return &v, true, nil
}

// InsertOptionValue appends a link without the (product, group) upsert
// check. It exists to load legacy data as-is.
func (s *MemoryStore) InsertOptionValue(productID, groupID, optionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optionValues = append(s.optionValues, domain.AttributeOptionGroupValue{
		ID: s.nextID("option_value"), ProductID: productID, GroupID: groupID, OptionID: optionID,
	})
}

func (s *MemoryStore) OptionValues(ctx context.Context, productID, groupID int64) ([]domain.AttributeOptionGroupValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttributeOptionGroupValue
	for _, v := range s.optionValues {
		if v.ProductID != productID || v.GroupID != groupID {
			continue
		}
		for _, o := range s.options {
			if o.ID == v.OptionID {
				opt := o
				v.Option = &opt
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// --- CarouselStorer ---

func (s *MemoryStore) CarouselImages(ctx context.Context, obj domain.ObjectRef) ([]domain.CarouselImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carouselOf(obj), nil
}

func (s *MemoryStore) carouselOf(obj domain.ObjectRef) []domain.CarouselImage {
	var out []domain.CarouselImage
	for _, img := range s.images {
		if img.Object == obj {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *MemoryStore) ClearCarouselImages(ctx context.Context, obj domain.ObjectRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.images[:0]
	for _, img := range s.images {
		if img.Object != obj {
			kept = append(kept, img)
		}
	}
	s.images = kept
	return nil
}

func (s *MemoryStore) AddCarouselImage(ctx context.Context, obj domain.ObjectRef, image string) (*domain.CarouselImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !obj.Saved() {
		return nil, ErrUnsavedObject
	}
	pos := 0
	for _, img := range s.carouselOf(obj) {
		if img.Position >= pos {
			pos = img.Position + 1
		}
	}
	img := domain.CarouselImage{ID: s.nextID("carousel_image"), Object: obj, Image: image, Position: pos}
	s.images = append(s.images, img)
	return &img, nil
}

// --- helpers ---

func (s *MemoryStore) sortedProducts() []*domain.Product {
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// load returns a detached copy of p with its relations filled in.
func (s *MemoryStore) load(p *domain.Product) *domain.Product {
	cp := cloneProduct(p)
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			cat := *c
			cp.Category = &cat
		}
	}
	cp.CarouselImages = nil
	for _, img := range s.carouselOf(p.Ref()) {
		cp.CarouselImages = append(cp.CarouselImages, img.Image)
	}
	return cp
}

func matches(p *domain.Product, filter Filter) (bool, error) {
	for attr, want := range filter {
		got, err := p.Attr(attr)
		if err != nil {
			return false, fmt.Errorf("%w: %s", ErrUnsupportedFilter, attr)
		}
		if got == nil || fmt.Sprint(got) != fmt.Sprint(want) {
			return false, nil
		}
	}
	return true, nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.ParentID = copyInt64(p.ParentID)
	cp.CategoryID = copyInt64(p.CategoryID)
	cp.Tags = domain.NewTagSet(p.Tags.Values()...)
	cp.CarouselImages = append([]string(nil), p.CarouselImages...)
	cp.Translations = cloneTranslations(p.Translations)
	return &cp
}

func cloneTranslations(in map[string]*domain.ProductTranslation) map[string]*domain.ProductTranslation {
	if in == nil {
		return nil
	}
	out := make(map[string]*domain.ProductTranslation, len(in))
	for lang, t := range in {
		cp := *t
		if t.MetaTitle != nil {
			mt := *t.MetaTitle
			cp.MetaTitle = &mt
		}
		out[lang] = &cp
	}
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
