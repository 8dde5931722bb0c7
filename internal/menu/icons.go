package menu

// Icon is a concrete rendering handle for a navigation entry.
type Icon struct {
	Name  string
	Glyph string
}

// IconDefault is the fallback for unknown icon keys.
var IconDefault = Icon{Name: "default", Glyph: "•"}

// icons is the static mapping from backend icon keys to rendering
// handles. Keys follow the backend's icon vocabulary.
var icons = map[string]Icon{
	"HomeOutlined":         {Name: "home", Glyph: "⌂"},
	"ShoppingCartOutlined": {Name: "cart", Glyph: "🛒"},
	"ShoppingOutlined":     {Name: "shop", Glyph: "🛍"},
	"UserOutlined":         {Name: "user", Glyph: "👤"},
	"BookOutlined":         {Name: "book", Glyph: "📖"},
	"SettingOutlined":      {Name: "settings", Glyph: "⚙"},
	"FileTextOutlined":     {Name: "report", Glyph: "📄"},
	"ControlOutlined":      {Name: "control", Glyph: "🎛"},
	"TagOutlined":          {Name: "tag", Glyph: "🏷"},
	"AppstoreOutlined":     {Name: "apps", Glyph: "▦"},
	"TeamOutlined":         {Name: "team", Glyph: "👥"},
	"DollarOutlined":       {Name: "money", Glyph: "$"},
}

// ResolveIcon maps an icon key to its handle, falling back to
// IconDefault for unknown keys.
func ResolveIcon(key string) Icon {
	if icon, ok := icons[key]; ok {
		return icon
	}
	return IconDefault
}
