package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeBackend is a minimal catalog/orders API
type fakeBackend struct {
	mu          sync.Mutex
	orderStatus string
	orders      []json.RawMessage
	lastAuth    string
	lastForm    map[string][]string
	lastUpload  string
	rejectOrder bool
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			http.Error(w, `{"message":"Product not found"}`, http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"data":{"id":7,"name":"Tai nghe","slug":"tai-nghe","price":"100000.00","stock":3,"image":"tai-nghe.jpg"}}`)
	})
	mux.HandleFunc("GET /products/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":7,"name":"Tai nghe","slug":"tai-nghe","price":100000,"original_price":125000,"stock":0}`)
	})
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":3,"name":"Phụ kiện","slug":"phu-kien"}]`)
	})
	mux.HandleFunc("GET /products/category/{slug}/price-range", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"min_price":50000,"max_price":500000}`)
	})
	mux.HandleFunc("GET /products/category/{slug}", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		io.WriteString(w, `{"category":{"id":3,"name":"Phụ kiện","slug":"phu-kien"},
			"products":[{"id":7,"name":"Tai nghe","price":100000}],
			"pagination":{"current_page":`+page+`,"last_page":3,"per_page":12,"total":30}}`)
	})
	mux.HandleFunc("POST /guest-orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		reject := f.rejectOrder
		f.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"success":false,"message":"Sản phẩm đã hết hàng"}`)
			return
		}
		io.WriteString(w, `{"success":true,"order":{"code":"DH0001"}}`)
	})
	mux.HandleFunc("GET /admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"id":5,"code":"DH0005","status":"`+f.orderStatus+`","total_amount":100000}`)
	})
	mux.HandleFunc("PUT /admin/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.orderStatus = body["status"]
		f.mu.Unlock()
		io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("GET /admin/orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		orders := f.orders
		if orders == nil {
			orders = []json.RawMessage{}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":         orders,
			"current_page": 1,
			"last_page":    1,
			"per_page":     20,
			"total":        len(orders),
		})
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f.mu.Lock()
		f.lastForm = r.MultipartForm.Value
		if files := r.MultipartForm.File["image"]; len(files) == 1 {
			src, _ := files[0].Open()
			raw, _ := io.ReadAll(src)
			src.Close()
			f.lastUpload = files[0].Filename + ":" + string(raw)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":11,"name":"`+r.FormValue("name")+`","price":90000}}`)
	})

	return mux
}

func (f *fakeBackend) setRejectOrder(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectOrder = reject
}

func (f *fakeBackend) setOrders(orders ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range orders {
		f.orders = append(f.orders, json.RawMessage(o))
	}
}

func (f *fakeBackend) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

type testEnv struct {
	engine  *gin.Engine
	store   storage.Store
	backend *fakeBackend
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{orderStatus: "pending"}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	cfg := global.Config{
		StorageDriver: "memory",
		ShippingFee:   global.DefaultShippingFee,
		CORSOrigins:   []string{"http://localhost:5173"},
		Location:      time.UTC,
	}
	store := storage.NewMemory()
	h := NewHandler(Dependencies{
		Config:  cfg,
		Store:   store,
		Backend: backend.NewClient(srv.URL, 2*time.Second),
	})

	engine := NewEngine(cfg)
	RegisterRoutes(engine, h)
	return &testEnv{engine: engine, store: store, backend: fb}
}

type envelope struct {
	Success bool                     `json:"success"`
	Data    json.RawMessage          `json:"data"`
	Message string                   `json:"message"`
	Errors  []global.ValidationError `json:"errors"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (e *testEnv) newSession(t *testing.T) string {
	w, env := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var data struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.SessionID
}

func TestHealthCheck(t *testing.T) {
	e := setupRouter(t)
	w, env := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"storage":"memory"`)
}

func TestRejectsMalformedSessionID(t *testing.T) {
	e := setupRouter(t)
	w, env := e.do(t, http.MethodGet, "/api/cart/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "sessionId", env.Errors[0].Field)
}

func TestCartFlow(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)

	w, env := e.do(t, http.MethodPost, "/api/cart/"+sid+"/items", map[string]interface{}{"product_id": 7, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	e.do(t, http.MethodPost, "/api/cart/"+sid+"/items", map[string]interface{}{"product_id": 7})

	w, env = e.do(t, http.MethodGet, "/api/cart/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Lines []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Price    int64  `json:"price"`
			Quantity int    `json:"quantity"`
		} `json:"lines"`
		Subtotal int64 `json:"subtotal"`
		Total    int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "Tai nghe", summary.Lines[0].Name)
	assert.Equal(t, 2, summary.Lines[0].Quantity)
	assert.Equal(t, int64(200000), summary.Subtotal)
	assert.Equal(t, int64(230000), summary.Total)

	w, _ = e.do(t, http.MethodPost, "/api/cart/"+sid+"/items", map[string]interface{}{"product_id": 7, "quantity": 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = e.do(t, http.MethodPut, "/api/cart/"+sid+"/items/7", map[string]interface{}{"quantity": 1 << 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPut, "/api/cart/"+sid+"/items/7", map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	_, env = e.do(t, http.MethodGet, "/api/cart/"+sid, nil)
	assert.Contains(t, string(env.Data), `"item_count":0`)
}

func TestAddUnknownProduct(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)

	w, env := e.do(t, http.MethodPost, "/api/cart/"+sid+"/items", map[string]interface{}{"product_id": 99})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestWishlistToggle(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)

	_, env := e.do(t, http.MethodPost, "/api/wishlist/"+sid+"/7/toggle", nil)
	assert.JSONEq(t, `{"product_ids":[7],"saved":true}`, string(env.Data))

	_, env = e.do(t, http.MethodPost, "/api/wishlist/"+sid+"/7/toggle", nil)
	assert.JSONEq(t, `{"product_ids":[],"saved":false}`, string(env.Data))
}

func TestProductBySlugView(t *testing.T) {
	e := setupRouter(t)
	w, env := e.do(t, http.MethodGet, "/api/catalog/products/tai-nghe", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		InStock         bool `json:"in_stock"`
		DiscountPercent int  `json:"discount_percent"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.False(t, view.InStock)
	assert.Equal(t, 20, view.DiscountPercent)
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestBrowseFlow(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)
	base := "/api/browse/" + sid + "/phu-kien"

	w, env := e.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"state":"ready"`)
	assert.Contains(t, string(env.Data), `"absolute_min":50000`)

	_, env = e.do(t, http.MethodPut, base+"/min", map[string]int64{"value": 600000})
	assert.Contains(t, string(env.Data), `"pending_min":490000`)

	_, env = e.do(t, http.MethodPost, base+"/apply", nil)
	assert.Contains(t, string(env.Data), `"selected_min":490000`)

	_, env = e.do(t, http.MethodPost, base+"/page/3", nil)
	assert.Contains(t, string(env.Data), `"changed":true`)
	assert.Contains(t, string(env.Data), `"current_page":3`)

	_, env = e.do(t, http.MethodPost, base+"/page/9", nil)
	assert.Contains(t, string(env.Data), `"changed":false`)

	_, env = e.do(t, http.MethodPost, base+"/reset", nil)
	assert.Contains(t, string(env.Data), `"pending_min":50000`)
	assert.Contains(t, string(env.Data), `"selected_min":490000`)
}

func validCheckoutForm() map[string]interface{} {
	return map[string]interface{}{
		"customer_name":   "Nguyễn Văn A",
		"customer_phone":  "0901 234 567",
		"customer_gender": "male",
		"province":        "Hà Nội",
		"district":        "Cầu Giấy",
		"ward":            "Dịch Vọng",
		"street":          "12 Trần Thái Tông",
		"payment_method":  "cod",
	}
}

func TestCheckout(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)

	w, _ := e.do(t, http.MethodPost, "/api/checkout/"+sid, validCheckoutForm())
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	e.do(t, http.MethodPost, "/api/cart/"+sid+"/items", map[string]interface{}{"product_id": 7, "quantity": 2})

	_, env := e.do(t, http.MethodGet, "/api/checkout/"+sid+"/quote", nil)
	assert.Contains(t, string(env.Data), `"total":230000`)

	bad := validCheckoutForm()
	bad["customer_phone"] = "12345"
	bad["payment_method"] = "card"
	w, env = e.do(t, http.MethodPost, "/api/checkout/"+sid, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := map[string]bool{}
	for _, ve := range env.Errors {
		fields[ve.Field] = true
	}
	assert.True(t, fields["customer_phone"])
	assert.True(t, fields["payment_method"])

	e.backend.setRejectOrder(true)
	w, env = e.do(t, http.MethodPost, "/api/checkout/"+sid, validCheckoutForm())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Message, "hết hàng")
	_, env = e.do(t, http.MethodGet, "/api/cart/"+sid, nil)
	assert.Contains(t, string(env.Data), `"item_count":2`)

	e.backend.setRejectOrder(false)
	w, env = e.do(t, http.MethodPost, "/api/checkout/"+sid, validCheckoutForm())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"order_code":"DH0001"`)
	_, env = e.do(t, http.MethodGet, "/api/cart/"+sid, nil)
	assert.Contains(t, string(env.Data), `"item_count":0`)
}

func TestAdminRequiresToken(t *testing.T) {
	e := setupRouter(t)
	w, _ := e.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminTokenFromSession(t *testing.T) {
	e := setupRouter(t)
	sid := e.newSession(t)

	w, _ := e.do(t, http.MethodPut, "/api/sessions/"+sid+"/token", map[string]string{"token": "tok-123"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/admin/orders", nil, SessionHeader, sid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bearer tok-123", e.backend.auth())

	w, _ = e.do(t, http.MethodGet, "/api/admin/orders", nil, "Authorization", "Bearer header-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer header-token", e.backend.auth())

	w, _ = e.do(t, http.MethodGet, "/api/admin/orders?status=lost", nil, "Authorization", "Bearer x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrderStatusWorkflow(t *testing.T) {
	e := setupRouter(t)
	auth := []string{"Authorization", "Bearer admin"}

	w, env := e.do(t, http.MethodPut, "/api/admin/orders/5/status", map[string]string{"status": "shipping"}, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Contains(t, env.Errors[0].Message, "confirmed")

	w, env = e.do(t, http.MethodPut, "/api/admin/orders/5/status", map[string]string{"status": "confirmed"}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"next_statuses":["shipping","cancelled"]`)

	w, _ = e.do(t, http.MethodPut, "/api/admin/orders/5/status", map[string]string{"status": "archived"}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCategoryNameRequired(t *testing.T) {
	e := setupRouter(t)
	w, env := e.do(t, http.MethodPost, "/api/admin/categories", map[string]string{"name": "   "}, "Authorization", "Bearer admin")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "name", env.Errors[0].Field)
}

func TestAdminCreateProductForwardsUpload(t *testing.T) {
	e := setupRouter(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("name", " Ốp lưng "))
	require.NoError(t, mw.WriteField("price", "90000"))
	part, err := mw.CreateFormFile("image", "op-lung.png")
	require.NoError(t, err)
	part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer admin")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e.backend.mu.Lock()
	defer e.backend.mu.Unlock()
	assert.Equal(t, []string{"Ốp lưng"}, e.backend.lastForm["name"])
	assert.Equal(t, "op-lung.png:png-bytes", e.backend.lastUpload)
}

func TestAdminStatistics(t *testing.T) {
	e := setupRouter(t)
	e.backend.setOrders(
		`{"id":1,"status":"completed","total_amount":"150000.00","created_at":"2024-05-02 10:00:00"}`,
		`{"id":2,"status":"cancelled","total_amount":80000,"created_at":"2024-05-03T09:00:00Z"}`,
		`{"id":3,"status":"pending","total_amount":50000,"created_at":"2024-06-01 09:00:00"}`,
	)
	auth := []string{"Authorization", "Bearer admin"}

	w, env := e.do(t, http.MethodGet, "/api/admin/statistics?start_date=2024-05-01&end_date=2024-05-31", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"total_orders":2`)
	assert.Contains(t, string(env.Data), `"total_revenue":150000`)

	w, _ = e.do(t, http.MethodGet, "/api/admin/statistics?start_date=2024-06-01&end_date=2024-05-01", nil, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/admin/statistics?start_date=0001-01-01&end_date=9999-12-31", nil, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = e.do(t, http.MethodGet, "/api/admin/statistics/insights?start_date=2024-05-01&end_date=2024-05-31", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"ai_enabled":false`)
}

func TestSessionActivityNeedsMongo(t *testing.T) {
	e := setupRouter(t)
	w, _ := e.do(t, http.MethodGet, "/api/admin/sessions/activity", nil, "Authorization", "Bearer admin")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
