package domain

// PanelKind identifies which desk panel is visible
type PanelKind string

const (
	PanelScheduleForm    PanelKind = "schedule_form"
	PanelScheduleCreated PanelKind = "schedule_created"
	PanelInstant         PanelKind = "instant"
	PanelJoin            PanelKind = "join"
)

// Card is one of the home cards on the desk
type Card struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Panel is the visible modal of the desk
type Panel struct {
	Kind       PanelKind `json:"kind"`
	Title      string    `json:"title"`
	ButtonText string    `json:"button_text"`
	Link       string    `json:"link,omitempty"`
	CanCopy    bool      `json:"can_copy"`
}

// DeskView is the rendered state of a desk
type DeskView struct {
	Loading bool                `json:"loading"`
	Mode    MeetingMode         `json:"mode"`
	Cards   []Card              `json:"cards,omitempty"`
	Panel   *Panel              `json:"panel,omitempty"`
	Input   PendingMeetingInput `json:"input"`
}
