package api

// User is the authenticated user as the backend reports it.
// Field names follow the backend's JSON contract.
type User struct {
	UserID          int64  `json:"userId"`
	Nombre          string `json:"nombre"`
	Apellidos       string `json:"apellidos"`
	Email           string `json:"email"`
	Direccion       string `json:"direccion,omitempty"`
	DireccionEnvio  string `json:"direccionEnvio,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	FechaNacimiento string `json:"fechaNacimiento,omitempty"`
	Rol             string `json:"rol,omitempty"`
}

// Credentials is the flat payload returned by /login and /validar:
// a bearer token plus the user fields inline.
type Credentials struct {
	Token string `json:"token"`
	Type  string `json:"type,omitempty"`
	User
}

// Product is a catalog entry.
type Product struct {
	ID          int64   `json:"id"`
	Descripcion string  `json:"descripcion"`
	Monto       float64 `json:"monto"`
	Imagen      string  `json:"imagen,omitempty"`
	Categoria   string  `json:"categoria,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}

// CartItem is one product-quantity line in the remote cart.
// ID is server-assigned; zero means the item has not been persisted yet.
type CartItem struct {
	ID                 int64    `json:"id,omitempty"`
	ProductID          int64    `json:"productId"`
	Cantidad           int      `json:"cantidad"`
	ProductMonto       float64  `json:"productMonto,omitempty"`
	ProductDescripcion string   `json:"productDescripcion,omitempty"`
	ProductImagen      string   `json:"productImagen,omitempty"`
	Producto           *Product `json:"producto,omitempty"`
}

// UnitPrice resolves the line's unit price: productMonto first, the
// nested product's monto second, zero when neither is present.
func (i CartItem) UnitPrice() float64 {
	if i.ProductMonto != 0 {
		return i.ProductMonto
	}
	if i.Producto != nil {
		return i.Producto.Monto
	}
	return 0
}

// cartPayload is the GET /cart response body.
type cartPayload struct {
	Items []CartItem `json:"items"`
}

// RegisterRequest carries the new-user fields for POST /register.
type RegisterRequest struct {
	Nombre          string `json:"nombre"`
	Apellidos       string `json:"apellidos"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Direccion       string `json:"direccion,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	FechaNacimiento string `json:"fechaNacimiento,omitempty"`
}

// Profile is the GET /users/profile response body.
type Profile struct {
	UserID          int64  `json:"userId"`
	Nombre          string `json:"nombre"`
	Apellidos       string `json:"apellidos"`
	Email           string `json:"email"`
	DireccionEnvio  string `json:"direccionEnvio,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	FechaNacimiento string `json:"fechaNacimiento,omitempty"`
}

// ProfileUpdate carries the editable profile fields for PUT /users/profile.
type ProfileUpdate struct {
	Nombre          string  `json:"nombre"`
	Apellidos       string  `json:"apellidos"`
	DireccionEnvio  string  `json:"direccionEnvio"`
	FechaNacimiento *string `json:"fechaNacimiento"`
}

// Payment methods accepted by POST /orders/confirm.
const (
	PaymentCreditCard = "TARJETA_CREDITO"
	PaymentDebitCard  = "TARJETA_DEBITO"
	PaymentCash       = "EFECTIVO"
)

// ConfirmOrderRequest is the POST /orders/confirm body.
type ConfirmOrderRequest struct {
	MetodoPago     string  `json:"metodoPago"`
	DireccionEnvio string  `json:"direccionEnvio"`
	Notas          *string `json:"notas"`
}

// OrderConfirmation is the POST /orders/confirm response body.
type OrderConfirmation struct {
	ID          int64   `json:"id"`
	NumeroOrden string  `json:"numeroOrden,omitempty"`
	Total       float64 `json:"total,omitempty"`
}

// Reference returns the user-facing order reference: the order number
// when the backend assigned one, the numeric id otherwise.
func (o OrderConfirmation) Reference() string {
	if o.NumeroOrden != "" {
		return o.NumeroOrden
	}
	return itoa(o.ID)
}

// Order is one entry of the GET /orders history.
type Order struct {
	ID             int64       `json:"id"`
	NumeroOrden    string      `json:"numeroOrden,omitempty"`
	Estado         string      `json:"estado,omitempty"`
	MetodoPago     string      `json:"metodoPago,omitempty"`
	DireccionEnvio string      `json:"direccionEnvio,omitempty"`
	Notas          string      `json:"notas,omitempty"`
	Total          float64     `json:"total"`
	Fecha          string      `json:"fecha,omitempty"`
	Items          []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of a historical order.
type OrderItem struct {
	ProductID          int64   `json:"productId"`
	ProductDescripcion string  `json:"productDescripcion,omitempty"`
	Cantidad           int     `json:"cantidad"`
	Monto              float64 `json:"monto"`
}

// MenuItem is a raw navigation entry from GET /menu/items.
type MenuItem struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Icon  string `json:"icon,omitempty"`
	Padre string `json:"padre,omitempty"`
}

// menuEnvelope is the {success, data} wrapper around menu items.
type menuEnvelope struct {
	Success bool       `json:"success"`
	Data    []MenuItem `json:"data"`
}
