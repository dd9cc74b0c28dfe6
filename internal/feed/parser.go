package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/timmy/catalogsync/internal/domain"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrMalformed is returned when the feed is not a well-formed XML document.
var ErrMalformed = errors.New("malformed feed document")

const (
	elemProducts = "products"
	elemProduct  = "product"
	elemParams   = "params"
	elemParam    = "param"
)

// Parse converts a feed document into product records in feed order.
// The first <products> element (root or nested) is the container; each
// <product> child is flattened, except <params> which becomes an ordered
// list of {id, value} pairs. A document without products yields an empty
// slice, not an error.
func Parse(data []byte) ([]domain.ProductRecord, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	products := []domain.ProductRecord{}
	sawRoot := false
	found := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if found || start.Name.Local != elemProducts {
			continue
		}

		found = true
		if products, err = parseProducts(dec); err != nil {
			return nil, err
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return products, nil
}

func parseProducts(dec *xml.Decoder) ([]domain.ProductRecord, error) {
	products := []domain.ProductRecord{}
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != elemProduct {
				if err := skip(dec); err != nil {
					return nil, err
				}
				continue
			}
			rec, err := parseProduct(dec)
			if err != nil {
				return nil, err
			}
			products = append(products, rec)
		case xml.EndElement:
			return products, nil
		}
	}
}

func parseProduct(dec *xml.Decoder) (domain.ProductRecord, error) {
	var rec domain.ProductRecord
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return rec, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == elemParams {
				params, err := parseParams(dec)
				if err != nil {
					return rec, err
				}
				rec.Params = append(rec.Params, params...)
				continue
			}
			text, err := readText(dec)
			if err != nil {
				return rec, err
			}
			rec.Set(t.Name.Local, text)
		case xml.EndElement:
			return rec, nil
		}
	}
}

func parseParams(dec *xml.Decoder) ([]domain.Param, error) {
	var params []domain.Param
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != elemParam {
				if err := skip(dec); err != nil {
					return nil, err
				}
				continue
			}
			p, err := parseParam(dec)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		case xml.EndElement:
			return params, nil
		}
	}
}

func parseParam(dec *xml.Decoder) (domain.Param, error) {
	var p domain.Param
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return p, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			text, err := readText(dec)
			if err != nil {
				return p, err
			}
			switch t.Name.Local {
			case "id":
				p.ID = text
			case "value":
				p.Value = text
			}
		case xml.EndElement:
			return p, nil
		}
	}
}

// readText returns the direct character data of the current element and
// consumes it through its end tag. Nested elements are skipped.
func readText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := skip(dec); err != nil {
				return "", err
			}
		case xml.EndElement:
			return b.String(), nil
		}
	}
}

func nextToken(dec *xml.Decoder) (xml.Token, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: unexpected end of document", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return tok, nil
}

func skip(dec *xml.Decoder) error {
	if err := dec.Skip(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported feed charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
