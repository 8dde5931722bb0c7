package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tienda/cmd/tienda/shop"
	"tienda/cmd/tienda/ui"
	"tienda/internal/api"
	"tienda/internal/cart"
	"tienda/internal/catalog"
	"tienda/internal/config"
	"tienda/internal/logging"
	"tienda/internal/menu"
	"tienda/internal/orders"
	"tienda/internal/profile"
	"tienda/internal/session"
)

type app struct {
	cfg    *config.Config
	client *api.Client
	stores shop.Stores
}

// bootstrap loads config, starts the category logger and wires the
// API client and stores together.
func bootstrap() (*app, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		cfg.API.AuthBaseURL = apiURL
	}

	dir, err := config.HomeDir()
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(dir, logging.Settings{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("tienda %s starting, backend %s", cfg.Version, cfg.API.BaseURL)

	// The client reads the token through a closure so the session store
	// can in turn use the client as its validator.
	var sess *session.Store
	client := api.NewClient(cfg.API.BaseURL, cfg.API.AuthBaseURL, cfg.RequestTimeout(), func() string {
		if sess == nil {
			return ""
		}
		return sess.Token()
	})
	sess = session.NewStore(filepath.Join(dir, "session.json"), client)

	cartStore := cart.NewStore(client, sess.Current)
	stores := shop.Stores{
		Session: sess,
		Cart:    cartStore,
		Menu:    menu.NewStore(client, sess.Current),
		Catalog: catalog.NewStore(client),
		Profile: profile.NewStore(client),
		Orders:  orders.NewStore(client, cartStore),
	}
	return &app{cfg: cfg, client: client, stores: stores}, nil
}

// runShop starts the interactive storefront.
func runShop() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optimistic restore before the first frame; revalidation happens
	// in the background once subscriptions are in place.
	a.stores.Session.Init()

	if err := a.stores.Session.Watch(); err != nil {
		logging.SessionError("session watcher unavailable: %v", err)
	}
	defer a.stores.Session.CloseWatch()

	m := shop.New(ctx, a.stores, a.client)
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsubSession := a.stores.Session.Subscribe(func(st session.State) {
		go a.stores.Cart.HandleSessionChange(ctx, st)
		p.Send(shop.SessionChangedMsg(st))
	})
	defer unsubSession()

	unsubCart := a.stores.Cart.Subscribe(func(st cart.State) {
		p.Send(shop.CartChangedMsg(st))
	})
	defer unsubCart()

	go func() {
		if a.stores.Session.Current().Logged {
			a.stores.Session.Revalidate(ctx)
		}
	}()

	_, err = p.Run()
	return err
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	email := strings.TrimSpace(args[0])
	password, err := readPassword()
	if err != nil {
		return err
	}

	creds, err := a.client.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if err := a.stores.Session.Login(creds); err != nil {
		return err
	}

	logger.Info("logged in", zap.String("email", creds.Email))
	fmt.Printf("Sesión iniciada como %s %s <%s>\n", creds.Nombre, creds.Apellidos, creds.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	st := a.stores.Session.Init()
	if !st.Logged {
		fmt.Println("No hay sesión activa.")
		return nil
	}
	a.stores.Session.Logout()
	fmt.Println("Sesión cerrada.")
	return nil
}

func runRecover(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	email := strings.TrimSpace(args[0])
	if err := a.client.RecoverPassword(cmd.Context(), email); err != nil {
		return err
	}

	logger.Info("password recovery requested", zap.String("email", email))
	fmt.Println("Si el correo existe, recibirás instrucciones de recuperación.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	password, err := readPassword()
	if err != nil {
		return err
	}

	creds, err := a.client.Register(cmd.Context(), api.RegisterRequest{
		Nombre:    regNombre,
		Apellidos: regApellidos,
		Email:     regEmail,
		Telefono:  regTelefono,
		Password:  password,
	})
	if err != nil {
		return err
	}
	if err := a.stores.Session.Login(creds); err != nil {
		return err
	}

	logger.Info("account created", zap.String("email", creds.Email))
	fmt.Printf("Cuenta creada, sesión iniciada como %s\n", creds.Email)
	return nil
}

func runProducts(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	products, err := a.stores.Catalog.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("Sin productos.")
		return nil
	}

	table := ui.NewSimpleTable("Productos", []string{"ID", "Descripción", "Precio"})
	table.AlignRight(2)
	for _, p := range products {
		table.AddRow(fmt.Sprintf("%d", p.ID), p.Descripcion, fmt.Sprintf("Q%.2f", p.Monto))
	}
	fmt.Print(table.View(ui.DefaultStyles()))
	return nil
}

func runOrders(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	if st := a.stores.Session.Init(); !st.Logged {
		return fmt.Errorf("no active session, run `tienda login` first")
	}

	list, err := a.stores.Orders.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("Sin pedidos.")
		return nil
	}

	table := ui.NewSimpleTable("Pedidos", []string{"Referencia", "Fecha", "Estado", "Total"})
	table.AlignRight(3)
	for _, o := range list {
		ref := o.NumeroOrden
		if ref == "" {
			ref = fmt.Sprintf("#%d", o.ID)
		}
		table.AddRow(ref, o.Fecha, o.Estado, fmt.Sprintf("Q%.2f", o.Total))
	}
	fmt.Print(table.View(ui.DefaultStyles()))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	st := a.stores.Session.Init()
	if !st.Logged {
		fmt.Println("No hay sesión activa.")
		return nil
	}
	fmt.Printf("%s %s <%s>\n", st.User.Nombre, st.User.Apellidos, st.User.Email)
	if st.User.Rol != "" {
		fmt.Printf("Rol: %s\n", st.User.Rol)
	}
	return nil
}

// readPassword takes the password from TIENDA_PASSWORD or, failing
// that, from a stdin prompt.
func readPassword() (string, error) {
	if pw := os.Getenv("TIENDA_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Print("Contraseña: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password required")
	}
	return pw, nil
}
