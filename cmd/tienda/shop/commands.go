package shop

import (
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"tienda/internal/api"
)

// refreshAllCmd fetches the catalog and, when logged in, the menu and
// profile in parallel. The cart is not fetched here; the session
// subscription drives cart loads.
func (m Model) refreshAllCmd() tea.Cmd {
	ctx := m.ctx
	stores := m.stores
	logged := stores.Session.Current().Logged

	return func() tea.Msg {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := stores.Catalog.Refresh(gctx)
			return err
		})
		if logged {
			g.Go(func() error {
				return stores.Menu.Fetch(gctx)
			})
			g.Go(func() error {
				_, err := stores.Profile.Fetch(gctx)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return errMsg{err}
		}
		return refreshedMsg{}
	}
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	ctx, client, sess := m.ctx, m.client, m.stores.Session
	return func() tea.Msg {
		creds, err := client.Login(ctx, email, password)
		if err != nil {
			return errMsg{err}
		}
		if err := sess.Login(creds); err != nil {
			return errMsg{err}
		}
		return loginDoneMsg{email: creds.Email}
	}
}

func (m Model) registerCmd(req api.RegisterRequest) tea.Cmd {
	ctx, client, sess := m.ctx, m.client, m.stores.Session
	return func() tea.Msg {
		creds, err := client.Register(ctx, req)
		if err != nil {
			return errMsg{err}
		}
		// Registration logs the new account in directly.
		if err := sess.Login(creds); err != nil {
			return errMsg{err}
		}
		return loginDoneMsg{email: creds.Email}
	}
}

func (m Model) addToCartCmd(product api.Product) tea.Cmd {
	ctx, store := m.ctx, m.stores.Cart
	return func() tea.Msg {
		if err := store.AddToCart(ctx, product, 1); err != nil {
			return errMsg{err}
		}
		return statusMsg("Agregado: " + product.Descripcion)
	}
}

func (m Model) removeCmd(itemID int64) tea.Cmd {
	ctx, store := m.ctx, m.stores.Cart
	return func() tea.Msg {
		if err := store.RemoveFromCart(ctx, itemID); err != nil {
			return errMsg{err}
		}
		return statusMsg("Producto eliminado del carrito")
	}
}

func (m Model) clearCartCmd() tea.Cmd {
	ctx, store := m.ctx, m.stores.Cart
	return func() tea.Msg {
		if err := store.Clear(ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("Carrito vacío")
	}
}

func (m Model) loadOrdersCmd() tea.Cmd {
	ctx, store := m.ctx, m.stores.Orders
	return func() tea.Msg {
		orders, err := store.List(ctx)
		if err != nil {
			return errMsg{err}
		}
		return ordersMsg(orders)
	}
}

func (m Model) confirmOrderCmd(req api.ConfirmOrderRequest) tea.Cmd {
	ctx, store := m.ctx, m.stores.Orders
	return func() tea.Msg {
		conf, err := store.Confirm(ctx, req)
		if err != nil {
			return errMsg{err}
		}
		return confirmedMsg(conf)
	}
}

func (m Model) saveProfileCmd(upd api.ProfileUpdate) tea.Cmd {
	ctx, store := m.ctx, m.stores.Profile
	return func() tea.Msg {
		p, err := store.Update(ctx, upd)
		if err != nil {
			return errMsg{err}
		}
		return profileMsg(p)
	}
}
