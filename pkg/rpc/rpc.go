// Package rpc defines the message contract of the product catalog command surface:
// command names, subjects, the response envelope and the wire types.
package rpc

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command names understood by the catalog.
const (
	CmdCreateProduct   = "create-product"
	CmdFindAllProducts = "find-all-products"
	CmdFindOneProduct  = "find-one-product"
	CmdUpdateProduct   = "update-product"
	CmdRemoveProduct   = "remove-product"
)

// Commands lists every command in registration order.
var Commands = []string{
	CmdCreateProduct,
	CmdFindAllProducts,
	CmdFindOneProduct,
	CmdUpdateProduct,
	CmdRemoveProduct,
}

// Subject returns the NATS subject serving cmd under prefix.
func Subject(prefix, cmd string) string {
	return prefix + "." + cmd
}

// Product is the wire representation of a catalog product.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PageMeta describes the position of a page within the available products.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
}

// Page is the result of find-all-products.
type Page struct {
	Data []Product `json:"data"`
	Meta PageMeta  `json:"meta"`
}

// CreateProductRequest is the payload of create-product.
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// FindAllRequest is the payload of find-all-products. Zero values are omitted so the server applies its defaults.
type FindAllRequest struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// IDRequest is the payload of find-one-product and remove-product.
type IDRequest struct {
	ID int64 `json:"id"`
}

// UpdateProductRequest is the payload of update-product; nil fields are left untouched.
type UpdateProductRequest struct {
	ID          int64    `json:"id"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// Error is the failure half of the envelope. Status follows HTTP status semantics.
type Error struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Status, e.Message)
}

// Response is the envelope every command replies with. Exactly one of Data and Error is set.
type Response struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// EncodeResult wraps a successful result in the envelope.
func EncodeResult(result any) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return json.Marshal(Response{Data: data})
}

// EncodeError wraps a failure in the envelope.
func EncodeError(e *Error) []byte {
	// Error holds only strings and ints, marshalling cannot fail.
	out, _ := json.Marshal(Response{Error: e})
	return out
}

// Decode unwraps an envelope into out. A failure envelope is returned as *Error.
func Decode(raw []byte, out any) error {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
