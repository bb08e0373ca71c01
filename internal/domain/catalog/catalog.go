// Package catalog holds the fixed list of items a ranking session compares.
package catalog

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pairwise/internal/validation"
)

// Item is one rankable entry. Items are immutable once the catalog is built.
type Item struct {
	ID          string `json:"id" koanf:"id" validate:"required,max=64"`
	Name        string `json:"name" koanf:"name" validate:"required"`
	Description string `json:"description" koanf:"description"`
}

// Catalog is an ordered, read-only set of items. Declaration order is the
// tie-break order for rankings.
type Catalog struct {
	items []Item
	index map[string]int
}

// New validates items and builds a catalog preserving their order.
func New(items []Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}
	c := &Catalog{
		items: make([]Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		if err := validation.ValidateStruct(&it); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, it.ID)
		}
		c.items[i] = it
		c.index[it.ID] = i
	}
	return c, nil
}

// LoadFile reads a YAML document of the form
//
//	items:
//	  - id: kokushi
//	    name: 国士無双
//	    description: ...
func LoadFile(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadCatalog, err)
	}
	var doc struct {
		Items []Item `koanf:"items"`
	}
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadCatalog, err)
	}
	return New(doc.Items)
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns a copy of the items in declaration order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns item ids in declaration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = it.ID
	}
	return ids
}

// Lookup returns the item with id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Index returns the declaration position of id, or -1.
func (c *Catalog) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Default returns the built-in yakuman catalog.
func Default() *Catalog {
	c, err := New(yakuman)
	if err != nil {
		panic(err)
	}
	return c
}

var yakuman = []Item{
	{ID: "kokushi", Name: "国士無双", Description: "老頭牌と字牌の十三面子（1・9と字牌1枚ずつ+1枚）"},
	{ID: "suanko", Name: "四暗刻", Description: "暗刻4つと面子1つ（単騎待ちは倍役満ルールも）"},
	{ID: "daisangen", Name: "大三元", Description: "白・發・中の三元牌すべてを刻子/槓子で揃える"},
	{ID: "shosushi", Name: "小四喜", Description: "風牌4種のうち3つを刻子/槓子 + 残り1つを雀頭"},
	{ID: "daisushi", Name: "大四喜", Description: "風牌4種すべてを刻子/槓子で揃える"},
	{ID: "tsuiso", Name: "字一色", Description: "手牌が字牌のみで構成"},
	{ID: "ryuiso", Name: "緑一色", Description: "索子の緑色牌のみで構成（23468索と發）"},
	{ID: "chinroto", Name: "清老頭", Description: "1と9のみで構成"},
	{ID: "churen", Name: "九蓮宝燈", Description: "同一色で1112345678999 + いずれか1枚"},
	{ID: "sukantsu", Name: "四槓子", Description: "槓子を4つ作る"},
	{ID: "tenhou", Name: "天和", Description: "親の第一ツモで和了"},
	{ID: "chihou", Name: "地和", Description: "子の第一ツモで和了"},
	{ID: "renhou", Name: "人和", Description: "子の第一巡での他家の捨て牌で和了（採用ルール依存）"},
	{ID: "daisuishi", Name: "大車輪（ローカル）", Description: "数牌2-8索の順子のみ（ローカル役満）"},
}
