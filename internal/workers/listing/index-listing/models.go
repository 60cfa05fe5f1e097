package indexlisting

const (
	ActionIndex  = "index"
	ActionDelete = "delete"
)

type Input struct {
	ItemID string `json:"itemId"`
	Action string `json:"action"`
}

type Output struct {
	ItemID  string `json:"itemId"`
	Action  string `json:"indexAction"`
	Indexed bool   `json:"indexed"`
}
