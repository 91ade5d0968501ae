package strategy

// Action 定义了评估器给出的决策
type Action string

const (
	ActionEnter Action = "ENTER" // 开仓
	ActionExit  Action = "EXIT"  // 平仓
	ActionHold  Action = "HOLD"  // 不动作
)

func (a Action) String() string { return string(a) }
