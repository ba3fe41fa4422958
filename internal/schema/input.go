package schema

type todoFields struct {
	Title   *string `json:"title"`
	Details *string `json:"details"`
	DueDate *string `json:"due_date"`
	Done    *bool   `json:"done"`
}

// TodoInput is a to-do payload that passed the todo schema. Only a Validator
// can produce a usable one; the zero value reports Valid() == false.
type TodoInput struct {
	fields    todoFields
	mode      Mode
	validated bool
}

func (ti TodoInput) Valid() bool {
	return ti.validated
}

// Mode is the validation mode the payload passed.
func (ti TodoInput) Mode() Mode {
	return ti.mode
}

func (ti TodoInput) Title() (string, bool) {
	return _deref(ti.fields.Title)
}

func (ti TodoInput) Details() (string, bool) {
	return _deref(ti.fields.Details)
}

func (ti TodoInput) DueDate() (string, bool) {
	return _deref(ti.fields.DueDate)
}

func (ti TodoInput) Done() (bool, bool) {
	if ti.fields.Done == nil {
		return false, false
	}
	return *ti.fields.Done, true
}

func _deref(value *string) (string, bool) {
	if value == nil {
		return "", false
	}
	return *value, true
}
