package redis

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
)

// Cart state is stored as compact JSON. Decoding is strict: any malformed
// value is reported to the caller, which drops the key and falls back to
// the zero value.

func encodeItems(items []cart.Item) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, it := range items {
		encodeItem(e, it)
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeItem(e *jx.Encoder, it cart.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("image")
	e.Str(it.Image)
	e.FieldStart("price")
	e.Str(it.Price.String())
	e.FieldStart("count_in_stock")
	e.Int(it.CountInStock)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

func decodeItems(b []byte) ([]cart.Item, error) {
	d := jx.DecodeBytes(b)
	var items []cart.Item
	if err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart items")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (cart.Item, error) {
	var it cart.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "image":
			it.Image, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err != nil {
				return err
			}
			it.Price, err = decimal.NewFromString(s)
		case "count_in_stock":
			it.CountInStock, err = d.Int()
		case "quantity":
			it.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

func encodeAddress(a cart.Address) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("full_name")
	e.Str(a.FullName)
	e.FieldStart("line1")
	e.Str(a.Line1)
	e.FieldStart("line2")
	e.Str(a.Line2)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("postal_code")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	e.FieldStart("phone")
	e.Str(a.Phone)
	e.ObjEnd()
	return e.Bytes()
}

func decodeAddress(b []byte) (cart.Address, error) {
	var a cart.Address
	d := jx.DecodeBytes(b)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "full_name":
			a.FullName, err = d.Str()
		case "line1":
			a.Line1, err = d.Str()
		case "line2":
			a.Line2, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "postal_code":
			a.PostalCode, err = d.Str()
		case "country":
			a.Country, err = d.Str()
		case "phone":
			a.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return cart.Address{}, errors.Wrap(err, "decode shipping address")
	}
	return a, nil
}
