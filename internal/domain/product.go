package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Param is one vendor-specific technical attribute of a feed product.
type Param struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ParamList is an ordered list of params stored as JSON in the database.
type ParamList []Param

// Value implements the driver.Valuer interface for database serialization.
func (p ParamList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *ParamList) Scan(value interface{}) error {
	if value == nil {
		*p = ParamList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ParamList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, p)
}

// Field is a feed child element that has no dedicated field on ProductRecord.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRecord is one <product> entry of the vendor feed.
type ProductRecord struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Barcode  string     `json:"barcode,omitempty"`
	Producer string     `json:"producer,omitempty"`
	Unit     string     `json:"unit,omitempty"`
	GroupID  string     `json:"groupid,omitempty"`
	JPG1     string     `json:"jpg1,omitempty"`
	JPG2     string     `json:"jpg2,omitempty"`
	Qty      string     `json:"qty,omitempty"`
	Price    string     `json:"price,omitempty"`
	Discount string     `json:"discount,omitempty"`
	OldPrice string     `json:"oldprice,omitempty"`
	Notes    [11]string `json:"notes"`
	Netto    string     `json:"netto,omitempty"`
	Brutto   string     `json:"brutto,omitempty"`
	Params   ParamList  `json:"params,omitempty"`
	Extra    []Field    `json:"extra,omitempty"`
}

// Note returns noteN (1-based); out of range yields "".
func (r *ProductRecord) Note(n int) string {
	if n < 1 || n > len(r.Notes) {
		return ""
	}
	return r.Notes[n-1]
}

// Set assigns a flattened feed child by element name. Names without a
// dedicated field are kept in Extra in feed order.
func (r *ProductRecord) Set(name, value string) {
	switch name {
	case "id":
		r.ID = value
	case "name":
		r.Name = value
	case "barcode":
		r.Barcode = value
	case "producer":
		r.Producer = value
	case "unit":
		r.Unit = value
	case "groupid":
		r.GroupID = value
	case "jpg1":
		r.JPG1 = value
	case "jpg2":
		r.JPG2 = value
	case "qty":
		r.Qty = value
	case "price":
		r.Price = value
	case "discount":
		r.Discount = value
	case "oldprice":
		r.OldPrice = value
	case "netto":
		r.Netto = value
	case "brutto":
		r.Brutto = value
	default:
		if n, ok := noteIndex(name); ok {
			r.Notes[n-1] = value
			return
		}
		for i := range r.Extra {
			if r.Extra[i].Name == name {
				r.Extra[i].Value = value
				return
			}
		}
		r.Extra = append(r.Extra, Field{Name: name, Value: value})
	}
}

// Fields returns every non-empty scalar field in canonical feed order,
// followed by unknown fields in the order they appeared.
func (r *ProductRecord) Fields() []Field {
	known := []Field{
		{"id", r.ID},
		{"name", r.Name},
		{"barcode", r.Barcode},
		{"producer", r.Producer},
		{"unit", r.Unit},
		{"groupid", r.GroupID},
		{"jpg1", r.JPG1},
		{"jpg2", r.JPG2},
		{"qty", r.Qty},
		{"price", r.Price},
		{"discount", r.Discount},
		{"oldprice", r.OldPrice},
	}
	for i, note := range r.Notes {
		known = append(known, Field{"note" + strconv.Itoa(i+1), note})
	}
	known = append(known, Field{"netto", r.Netto}, Field{"brutto", r.Brutto})
	known = append(known, r.Extra...)

	out := make([]Field, 0, len(known))
	for _, f := range known {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

func noteIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "note") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "note"))
	if err != nil || n < 1 || n > 11 {
		return 0, false
	}
	return n, true
}
