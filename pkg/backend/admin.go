package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/datx24/storefront/pkg/models"
)

type CategoryInput struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type AttributeInput struct {
	Name string `json:"name"`
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	var category models.Category
	if err := c.sendResource(ctx, http.MethodPost, "/categories", in, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*models.Category, error) {
	var category models.Category
	if err := c.sendResource(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), in, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil, "", nil)
}

func (c *Client) Attributes(ctx context.Context) ([]models.Attribute, error) {
	var attributes []models.Attribute
	if err := c.getResource(ctx, "/attributes", nil, &attributes); err != nil {
		return nil, err
	}
	return attributes, nil
}

func (c *Client) CreateAttribute(ctx context.Context, in AttributeInput) (*models.Attribute, error) {
	var attribute models.Attribute
	if err := c.sendResource(ctx, http.MethodPost, "/attributes", in, &attribute); err != nil {
		return nil, err
	}
	return &attribute, nil
}

func (c *Client) UpdateAttribute(ctx context.Context, id int64, in AttributeInput) (*models.Attribute, error) {
	var attribute models.Attribute
	if err := c.sendResource(ctx, http.MethodPut, fmt.Sprintf("/attributes/%d", id), in, &attribute); err != nil {
		return nil, err
	}
	return &attribute, nil
}

func (c *Client) DeleteAttribute(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/attributes/%d", id), nil, nil, "", nil)
}

// FormFile is an uploaded image forwarded to the backend
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ProductForm is a multipart product create/update. Description carries the rich
// text editor's HTML untouched.
type ProductForm struct {
	Fields map[string][]string
	Files  []FormFile
}

func (f *ProductForm) Value(key string) string {
	if v := f.Fields[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c *Client) CreateProduct(ctx context.Context, form *ProductForm) (*models.Product, error) {
	return c.sendProduct(ctx, "/products", form, "")
}

// UpdateProduct posts with a _method=PUT override since multipart PUT bodies are
// not parsed by the backend
func (c *Client) UpdateProduct(ctx context.Context, id int64, form *ProductForm) (*models.Product, error) {
	return c.sendProduct(ctx, fmt.Sprintf("/products/%d", id), form, http.MethodPut)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, "", nil)
}

func (c *Client) sendProduct(ctx context.Context, path string, form *ProductForm, methodOverride string) (*models.Product, error) {
	body, contentType, err := encodeMultipart(form, methodOverride)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, nil, body, contentType, &raw); err != nil {
		return nil, err
	}
	var product models.Product
	if err := decodeResource(raw, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func encodeMultipart(form *ProductForm, methodOverride string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for key, values := range form.Fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", key, err)
			}
		}
	}
	if methodOverride != "" {
		if err := w.WriteField("_method", methodOverride); err != nil {
			return nil, "", err
		}
	}

	for _, f := range form.Files {
		if err := writeFile(w, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f FormFile) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", f.Field, err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", f.Filename, err)
	}
	defer src.Close()

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy upload %s: %w", f.Filename, err)
	}
	return nil
}
