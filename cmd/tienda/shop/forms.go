package shop

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tienda/internal/api"
)

type formKind int

const (
	formNone formKind = iota
	formLogin
	formRegister
	formCheckout
	formProfile
)

// paymentMethods maps the selector order to the backend's enum.
var paymentMethods = []struct {
	value string
	label string
}{
	{api.PaymentCreditCard, "Tarjeta de crédito"},
	{api.PaymentDebitCard, "Tarjeta de débito"},
	{api.PaymentCash, "Efectivo"},
}

// form is a focus-cycled stack of text inputs. The checkout form adds
// a payment method selector as a final virtual row.
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	payIdx int
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 120
	ti.Width = 40
	return ti
}

func newLoginForm() form {
	email := newInput("correo@ejemplo.com")
	email.Focus()
	password := newInput("contraseña")
	password.EchoMode = textinput.EchoPassword

	return form{
		kind:   formLogin,
		title:  "Iniciar sesión",
		labels: []string{"Email", "Contraseña"},
		inputs: []textinput.Model{email, password},
	}
}

func newRegisterForm() form {
	nombre := newInput("nombre")
	nombre.Focus()
	apellidos := newInput("apellidos")
	email := newInput("correo@ejemplo.com")
	password := newInput("contraseña")
	password.EchoMode = textinput.EchoPassword

	return form{
		kind:   formRegister,
		title:  "Crear cuenta",
		labels: []string{"Nombre", "Apellidos", "Email", "Contraseña"},
		inputs: []textinput.Model{nombre, apellidos, email, password},
	}
}

func newCheckoutForm(p *api.Profile) form {
	address := newInput("dirección de envío")
	if p != nil {
		address.SetValue(p.DireccionEnvio)
	}
	address.Focus()
	notes := newInput("notas (opcional)")

	return form{
		kind:   formCheckout,
		title:  "Confirmar pedido",
		labels: []string{"Dirección", "Notas"},
		inputs: []textinput.Model{address, notes},
	}
}

func newProfileForm(p *api.Profile) form {
	nombre := newInput("nombre")
	nombre.SetValue(p.Nombre)
	nombre.Focus()
	apellidos := newInput("apellidos")
	apellidos.SetValue(p.Apellidos)
	address := newInput("dirección de envío")
	address.SetValue(p.DireccionEnvio)
	fecha := newInput("aaaa-mm-dd")
	fecha.SetValue(p.FechaNacimiento)

	return form{
		kind:   formProfile,
		title:  "Editar perfil",
		labels: []string{"Nombre", "Apellidos", "Dirección", "Nacimiento"},
		inputs: []textinput.Model{nombre, apellidos, address, fecha},
	}
}

// lastFocus is the index of the last focusable row. The checkout form
// has one extra row for the payment selector.
func (f form) lastFocus() int {
	if f.kind == formCheckout {
		return len(f.inputs)
	}
	return len(f.inputs) - 1
}

func (f *form) setFocus(idx int) {
	f.focus = idx
	for i := range f.inputs {
		if i == idx {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *form) next() {
	idx := f.focus + 1
	if idx > f.lastFocus() {
		idx = 0
	}
	f.setFocus(idx)
}

func (f *form) prev() {
	idx := f.focus - 1
	if idx < 0 {
		idx = f.lastFocus()
	}
	f.setFocus(idx)
}

func (f form) onPaymentRow() bool {
	return f.kind == formCheckout && f.focus == len(f.inputs)
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.form = form{}
		return m, nil
	case "tab", "down":
		m.form.next()
		return m, nil
	case "shift+tab", "up":
		m.form.prev()
		return m, nil
	case "enter":
		if m.form.focus == m.form.lastFocus() {
			return m.submitForm()
		}
		m.form.next()
		return m, nil
	case "left", "right":
		if m.form.onPaymentRow() {
			n := len(paymentMethods)
			if msg.String() == "right" {
				m.form.payIdx = (m.form.payIdx + 1) % n
			} else {
				m.form.payIdx = (m.form.payIdx + n - 1) % n
			}
			return m, nil
		}
	}

	if m.form.focus < len(m.form.inputs) {
		var cmd tea.Cmd
		m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form

	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

	switch f.kind {
	case formLogin:
		email, password := value(0), f.inputs[1].Value()
		if email == "" || password == "" {
			m.setStatus("Email y contraseña son requeridos", true)
			return m, nil
		}
		return m, m.loginCmd(email, password)

	case formRegister:
		req := api.RegisterRequest{
			Nombre:    value(0),
			Apellidos: value(1),
			Email:     value(2),
			Password:  f.inputs[3].Value(),
		}
		if req.Nombre == "" || req.Email == "" || req.Password == "" {
			m.setStatus("Nombre, email y contraseña son requeridos", true)
			return m, nil
		}
		return m, m.registerCmd(req)

	case formCheckout:
		req := api.ConfirmOrderRequest{
			MetodoPago:     paymentMethods[f.payIdx].value,
			DireccionEnvio: value(0),
		}
		if req.DireccionEnvio == "" {
			m.setStatus("La dirección de envío es requerida", true)
			return m, nil
		}
		if notes := value(1); notes != "" {
			req.Notas = &notes
		}
		return m, m.confirmOrderCmd(req)

	case formProfile:
		upd := api.ProfileUpdate{
			Nombre:         value(0),
			Apellidos:      value(1),
			DireccionEnvio: value(2),
		}
		if fecha := value(3); fecha != "" {
			upd.FechaNacimiento = &fecha
		}
		m.form = form{}
		return m, m.saveProfileCmd(upd)
	}

	m.form = form{}
	return m, nil
}
