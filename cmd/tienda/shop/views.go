package shop

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"tienda/cmd/tienda/ui"
	"tienda/internal/api"
	"tienda/internal/menu"
)

func money(v float64) string {
	return fmt.Sprintf("Q%.2f", v)
}

// View renders the full frame.
func (m Model) View() string {
	var body string
	if m.form.kind != formNone {
		body = m.renderForm()
	} else {
		switch m.view {
		case viewCatalog:
			body = m.renderCatalog()
		case viewDetail:
			body = m.detailMD
		case viewCart:
			body = m.renderCart()
		case viewOrders:
			body = m.renderOrders()
		case viewProfile:
			body = m.renderProfile()
		}
	}

	content := m.styles.Content.Render(body)
	if m.session.Logged {
		if sidebar := m.renderSidebar(); sidebar != "" {
			content = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		content,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	left := m.styles.Header.Render("TIENDA")

	who := "invitado"
	if m.session.Logged {
		who = m.session.User.Email
	}
	badge := m.styles.Badge.Render(fmt.Sprintf("Carrito %d · %s", m.cart.TotalItems, money(m.cart.TotalPrice)))

	right := m.styles.Muted.Render(who) + " " + badge
	if m.cart.Loading {
		right = m.spinner.View() + " " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderSidebar() string {
	entries := m.stores.Menu.Entries()
	if len(entries) == 0 {
		return ""
	}

	var lines []string
	for _, e := range entries {
		switch e.Type {
		case menu.EntryDivider:
			lines = append(lines, m.styles.Divider.Render("──────────────"))
		case menu.EntryGroup:
			lines = append(lines, m.styles.Bold.Render(e.Label))
		case menu.EntryItem:
			lines = append(lines, m.styles.Body.Render(e.Icon.Glyph+" "+e.Label))
		}
	}
	return m.styles.Sidebar.Render(strings.Join(lines, "\n"))
}

func (m Model) renderCatalog() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Productos"))
	sb.WriteString("\n")

	if len(m.products) == 0 {
		sb.WriteString(m.styles.Muted.Render("Sin productos. Presiona r para recargar."))
		return sb.String()
	}

	for i, p := range m.products {
		line := fmt.Sprintf("%-40s %10s", truncate(p.Descripcion, 40), money(p.Monto))
		if m.stores.Cart.IsInCart(p.ID) {
			line += "  " + m.styles.Success.Render("✓ en carrito")
		}
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			sb.WriteString(m.styles.Body.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDetail builds the product page as markdown and renders it with
// a terminal-width glamour renderer matching the active theme.
func (m Model) renderDetail(p api.Product) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", p.Descripcion)
	fmt.Fprintf(&md, "**Precio:** %s\n\n", money(p.Monto))
	if p.Categoria != "" {
		fmt.Fprintf(&md, "**Categoría:** %s\n\n", p.Categoria)
	}
	if p.Stock > 0 {
		fmt.Fprintf(&md, "**Disponibles:** %d\n\n", p.Stock)
	}
	if p.Imagen != "" {
		fmt.Fprintf(&md, "[Imagen](%s)\n\n", p.Imagen)
	}
	md.WriteString("Presiona `a` para agregar al carrito, `esc` para volver.\n")

	styleName := "light"
	if m.styles.Theme.IsDark {
		styleName = "dark"
	}
	width := m.width - 8
	if width < 20 {
		width = 60
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md.String()
	}
	out, err := r.Render(md.String())
	if err != nil {
		return md.String()
	}
	return out
}

func (m Model) renderCart() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Carrito"))
	sb.WriteString("\n")

	if !m.session.Logged {
		sb.WriteString(m.styles.Warning.Render("Debes iniciar sesión para usar el carrito (l)."))
		return sb.String()
	}
	if len(m.cart.Items) == 0 {
		sb.WriteString(m.styles.Muted.Render("El carrito está vacío."))
		return sb.String()
	}

	for i, item := range m.cart.Items {
		qty := m.displayQuantity(item)
		name := item.ProductDescripcion
		if name == "" && item.Producto != nil {
			name = item.Producto.Descripcion
		}
		line := fmt.Sprintf("%-36s x%-3d %10s", truncate(name, 36), qty, money(item.UnitPrice()*float64(qty)))
		if _, pending := m.pendingQty[item.ID]; pending {
			line += " " + m.styles.Muted.Render("…")
		}
		if i == m.cartCursor {
			sb.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			sb.WriteString(m.styles.Body.Render("  " + line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.RenderDivider(54))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Bold.Render(fmt.Sprintf("%d artículos", m.cart.TotalItems)))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Price.Render("Total: " + money(m.cart.TotalPrice)))
	return sb.String()
}

func (m Model) renderOrders() string {
	if !m.session.Logged {
		return m.styles.Warning.Render("Debes iniciar sesión para ver tus pedidos (l).")
	}
	if len(m.orders) == 0 {
		return m.styles.Title.Render("Pedidos") + "\n" +
			m.styles.Muted.Render("Sin pedidos todavía.")
	}

	table := ui.NewSimpleTable("Pedidos", []string{"", "Referencia", "Fecha", "Estado", "Total"})
	table.AlignRight(4)
	for i, o := range m.orders {
		marker := " "
		if i == m.ordersCursor {
			marker = "›"
		}
		ref := o.NumeroOrden
		if ref == "" {
			ref = fmt.Sprintf("#%d", o.ID)
		}
		table.AddRow(marker, ref, o.Fecha, o.Estado, money(o.Total))
	}

	out := table.View(m.styles)
	if m.ordersCursor < len(m.orders) {
		out += m.renderOrderLines(m.orders[m.ordersCursor])
	}
	return out
}

func (m Model) renderOrderLines(o api.Order) string {
	if len(o.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Subtitle.Render("Detalle"))
	sb.WriteString("\n")
	for _, it := range o.Items {
		sb.WriteString(m.styles.Body.Render(
			fmt.Sprintf("  %s x%d  %s", truncate(it.ProductDescripcion, 36), it.Cantidad, money(it.Monto))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderProfile() string {
	if !m.session.Logged {
		return m.styles.Warning.Render("Debes iniciar sesión para ver tu perfil (l).")
	}
	p := m.profileData
	if p == nil {
		return m.styles.Title.Render("Perfil") + "\n" +
			m.styles.Muted.Render("Cargando perfil…")
	}

	rows := []string{
		m.styles.Title.Render("Perfil"),
		m.styles.Bold.Render("Nombre:    ") + m.styles.Body.Render(p.Nombre+" "+p.Apellidos),
		m.styles.Bold.Render("Email:     ") + m.styles.Body.Render(p.Email),
		m.styles.Bold.Render("Dirección: ") + m.styles.Body.Render(orDash(p.DireccionEnvio)),
		m.styles.Bold.Render("Teléfono:  ") + m.styles.Body.Render(orDash(p.Telefono)),
		m.styles.Bold.Render("Nacimiento:") + m.styles.Body.Render(" "+orDash(p.FechaNacimiento)),
		"",
		m.styles.Muted.Render("e editar"),
	}
	return m.styles.Card.Render(strings.Join(rows, "\n"))
}

func (m Model) renderForm() string {
	f := m.form
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(f.title))
	sb.WriteString("\n")

	for i, label := range f.labels {
		style := m.styles.Muted
		if i == f.focus {
			style = m.styles.Prompt
		}
		sb.WriteString(style.Render(fmt.Sprintf("%-12s", label)))
		sb.WriteString(f.inputs[i].View())
		sb.WriteString("\n")
	}

	if f.kind == formCheckout {
		style := m.styles.Muted
		if f.onPaymentRow() {
			style = m.styles.Prompt
		}
		sb.WriteString(style.Render(fmt.Sprintf("%-12s", "Pago")))
		sb.WriteString(m.styles.Body.Render("◂ " + paymentMethods[f.payIdx].label + " ▸"))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Price.Render("Total: " + money(m.cart.TotalPrice)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("enter continuar · esc cancelar"))
	return sb.String()
}

func (m Model) renderFooter() string {
	help := "1 productos · 2 carrito · 3 pedidos · 4 perfil"
	if m.form.kind != formNone {
		help = "tab siguiente campo · enter enviar · esc cancelar"
	} else {
		switch m.view {
		case viewCatalog:
			help += " · ↑/↓ mover · enter ver · a agregar"
		case viewCart:
			help += " · +/- cantidad · d quitar · x vaciar · o pagar"
		}
		if m.session.Logged {
			help += " · l salir"
		} else {
			help += " · l entrar · R registrarse"
		}
		help += " · q salir del programa"
	}

	line := m.styles.Footer.Render(help)
	if m.status != "" {
		style := m.styles.Success
		if m.statErr {
			style = m.styles.Error
		}
		line = style.Render(m.status) + "\n" + line
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
