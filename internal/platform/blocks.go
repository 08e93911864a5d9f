package platform

// Block is one layout element of a rich message.
type Block interface {
	block()
}

// ButtonStyle selects the visual weight of a button.
type ButtonStyle string

const (
	ButtonDefault ButtonStyle = ""
	ButtonPrimary ButtonStyle = "primary"
	ButtonDanger  ButtonStyle = "danger"
)

// Button is an interactive element whose click arrives as an ActionEvent.
type Button struct {
	ActionID string
	Label    string
	Value    string
	Style    ButtonStyle
}

// Header is a bold title line.
type Header struct {
	Text string
}

// Section is a markdown paragraph with an optional button on its right.
type Section struct {
	Text      string
	Accessory *Button
}

// Actions is a row of buttons.
type Actions struct {
	Buttons []Button
}

// Context is a row of small markdown fragments.
type Context struct {
	Elements []string
}

// Divider is a horizontal rule.
type Divider struct{}

func (Header) block()  {}
func (Section) block() {}
func (Actions) block() {}
func (Context) block() {}
func (Divider) block() {}
