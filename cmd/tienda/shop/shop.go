// Package shop is the interactive storefront. It renders the catalog,
// cart, checkout, order history and profile views on top of the store
// layer, reacting to store subscriptions pushed in as messages.
package shop

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tienda/cmd/tienda/ui"
	"tienda/internal/api"
	"tienda/internal/cart"
	"tienda/internal/catalog"
	"tienda/internal/menu"
	"tienda/internal/orders"
	"tienda/internal/profile"
	"tienda/internal/session"
)

// Stores bundles the state stores the storefront renders.
type Stores struct {
	Session *session.Store
	Cart    *cart.Store
	Menu    *menu.Store
	Catalog *catalog.Store
	Profile *profile.Store
	Orders  *orders.Store
}

type view int

const (
	viewCatalog view = iota
	viewDetail
	viewCart
	viewOrders
	viewProfile
)

// Messages pushed into the program from store subscriptions.
type (
	// SessionChangedMsg carries a new session state.
	SessionChangedMsg session.State
	// CartChangedMsg carries a new cart state.
	CartChangedMsg cart.State
)

type (
	refreshedMsg struct{}
	ordersMsg    []api.Order
	profileMsg   *api.Profile
	confirmedMsg *api.OrderConfirmation
	loginDoneMsg struct{ email string }
	errMsg       struct{ err error }
	statusMsg    string
)

// Model is the root bubbletea model of the storefront.
type Model struct {
	ctx    context.Context
	stores Stores
	client *api.Client
	styles ui.Styles

	width  int
	height int
	view   view

	spinner spinner.Model
	status  string
	statErr bool

	session session.State
	cart    cart.State

	products []api.Product
	cursor   int

	detail   api.Product
	detailMD string

	cartCursor  int
	pendingQty  map[int64]int
	qtyDebounce *ui.QuantityDebouncer

	orders       []api.Order
	ordersCursor int

	profileData *api.Profile

	form form
}

// New builds the storefront model.
func New(ctx context.Context, stores Stores, client *api.Client) Model {
	styles := ui.DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		ctx:         ctx,
		stores:      stores,
		client:      client,
		styles:      styles,
		spinner:     sp,
		session:     stores.Session.Current(),
		cart:        stores.Cart.Current(),
		pendingQty:  make(map[int64]int),
		qtyDebounce: ui.NewQuantityDebouncer(ui.DefaultQuantityDuration),
	}
}

// Init starts the spinner and the initial data refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refreshAllCmd())
}

// Update routes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == viewDetail {
			m.detailMD = m.renderDetail(m.detail)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionChangedMsg:
		return m.handleSessionChange(session.State(msg))

	case CartChangedMsg:
		m.cart = cart.State(msg)
		if !m.cart.Loading {
			m.pendingQty = make(map[int64]int)
		}
		if m.cart.Err != "" {
			m.setStatus(m.cart.Err, true)
		}
		m.clampCartCursor()
		return m, nil

	case refreshedMsg:
		m.products = m.stores.Catalog.Products()
		m.profileData = m.stores.Profile.Current()
		if m.cursor >= len(m.products) {
			m.cursor = 0
		}
		return m, nil

	case ordersMsg:
		m.orders = msg
		if m.ordersCursor >= len(m.orders) {
			m.ordersCursor = 0
		}
		return m, nil

	case profileMsg:
		m.profileData = msg
		m.setStatus("Perfil actualizado", false)
		return m, nil

	case confirmedMsg:
		conf := (*api.OrderConfirmation)(msg)
		m.setStatus("Pedido confirmado: "+conf.Reference(), false)
		m.form = form{}
		m.view = viewOrders
		return m, m.loadOrdersCmd()

	case loginDoneMsg:
		// The session subscription already kicked off the refresh.
		m.setStatus("Bienvenido, "+msg.email, false)
		m.form = form{}
		m.view = viewCatalog
		return m, nil

	case errMsg:
		m.setStatus(msg.err.Error(), true)
		return m, nil

	case statusMsg:
		m.setStatus(string(msg), false)
		return m, nil
	}

	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statErr = isErr
}

func (m Model) handleSessionChange(st session.State) (tea.Model, tea.Cmd) {
	wasLogged := m.session.Logged
	m.session = st

	if !wasLogged && st.Logged {
		// Covers TUI logins and sessions established externally.
		return m, m.refreshAllCmd()
	}
	if wasLogged && !st.Logged {
		// External or local logout: drop per-user data.
		m.orders = nil
		m.profileData = nil
		m.form = form{}
		m.view = viewCatalog
		m.setStatus("Sesión cerrada", false)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.qtyDebounce.Cancel()
		return m, tea.Quit
	}

	if m.form.kind != formNone {
		return m.updateForm(msg)
	}

	switch msg.String() {
	case "q":
		m.qtyDebounce.Cancel()
		return m, tea.Quit
	case "1":
		m.view = viewCatalog
		return m, nil
	case "2":
		m.view = viewCart
		return m, nil
	case "3":
		m.view = viewOrders
		if m.session.Logged {
			return m, m.loadOrdersCmd()
		}
		return m, nil
	case "4":
		m.view = viewProfile
		return m, nil
	case "l":
		if m.session.Logged {
			m.stores.Session.Logout()
			return m, nil
		}
		m.form = newLoginForm()
		return m, nil
	case "R":
		if !m.session.Logged {
			m.form = newRegisterForm()
		}
		return m, nil
	case "r":
		return m, m.refreshAllCmd()
	}

	switch m.view {
	case viewCatalog:
		return m.handleCatalogKey(msg)
	case viewDetail:
		return m.handleDetailKey(msg)
	case viewCart:
		return m.handleCartKey(msg)
	case viewOrders:
		return m.handleOrdersKey(msg)
	case viewProfile:
		return m.handleProfileKey(msg)
	}
	return m, nil
}

func (m Model) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.products)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.products) {
			m.detail = m.products[m.cursor]
			m.detailMD = m.renderDetail(m.detail)
			m.view = viewDetail
		}
	case "a", " ":
		if m.cursor < len(m.products) {
			return m, m.addToCartCmd(m.products[m.cursor])
		}
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.view = viewCatalog
	case "a", " ", "enter":
		return m, m.addToCartCmd(m.detail)
	}
	return m, nil
}

func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cartCursor > 0 {
			m.cartCursor--
		}
	case "down", "j":
		if m.cartCursor < len(m.cart.Items)-1 {
			m.cartCursor++
		}
	case "+", "right":
		m.adjustQuantity(1)
	case "-", "left":
		m.adjustQuantity(-1)
	case "d", "delete":
		if item, ok := m.currentCartLine(); ok {
			return m, m.removeCmd(item.ID)
		}
	case "x":
		if len(m.cart.Items) > 0 {
			return m, m.clearCartCmd()
		}
	case "o", "enter":
		if m.session.Logged && len(m.cart.Items) > 0 {
			m.form = newCheckoutForm(m.profileData)
		}
	}
	return m, nil
}

func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.ordersCursor > 0 {
			m.ordersCursor--
		}
	case "down", "j":
		if m.ordersCursor < len(m.orders)-1 {
			m.ordersCursor++
		}
	}
	return m, nil
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "e" && m.session.Logged && m.profileData != nil {
		m.form = newProfileForm(m.profileData)
	}
	return m, nil
}

func (m Model) currentCartLine() (api.CartItem, bool) {
	if m.cartCursor < 0 || m.cartCursor >= len(m.cart.Items) {
		return api.CartItem{}, false
	}
	return m.cart.Items[m.cartCursor], true
}

func (m *Model) clampCartCursor() {
	if m.cartCursor >= len(m.cart.Items) {
		m.cartCursor = len(m.cart.Items) - 1
	}
	if m.cartCursor < 0 {
		m.cartCursor = 0
	}
}

// adjustQuantity applies a local delta to the selected line and queues
// the debounced backend commit. Only the final value after a burst of
// keystrokes reaches the backend.
func (m *Model) adjustQuantity(delta int) {
	item, ok := m.currentCartLine()
	if !ok {
		return
	}
	qty, pending := m.pendingQty[item.ID]
	if !pending {
		qty = item.Cantidad
	}
	qty += delta
	if qty < 0 {
		qty = 0
	}
	m.pendingQty[item.ID] = qty

	ctx, store := m.ctx, m.stores.Cart
	m.qtyDebounce.Set(item.ID, qty, func(id int64, q int) {
		// Runs off the UI goroutine; the store pushes the result back
		// through the cart subscription.
		_ = store.UpdateQuantity(ctx, id, q)
	})
}

// displayQuantity is the line quantity the cart view shows, preferring
// a pending local edit over the last confirmed value.
func (m Model) displayQuantity(item api.CartItem) int {
	if qty, ok := m.pendingQty[item.ID]; ok {
		return qty
	}
	return item.Cantidad
}
