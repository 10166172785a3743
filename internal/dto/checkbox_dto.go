package dto

// CheckboxSaveRequest stores the checked checkbox indices of a lesson or topic.
type CheckboxSaveRequest struct {
	PostID  uint  `json:"post_id" validate:"required,gt=0"`
	Checked []int `json:"checked" validate:"max=500,dive,gte=0"`
}

// CheckboxPostRequest addresses a lesson or topic.
type CheckboxPostRequest struct {
	PostID uint `json:"post_id" validate:"required,gt=0"`
}

// CheckboxStateResponse carries the saved indices of a post.
type CheckboxStateResponse struct {
	PostID  uint  `json:"post_id"`
	Checked []int `json:"checked"`
}

// StepStateResponse describes a learner's position on a lesson or topic.
type StepStateResponse struct {
	PostID       uint   `json:"post_id"`
	StepType     string `json:"step_type"`
	CourseID     uint   `json:"course_id"`
	Checkboxes   int    `json:"checkboxes"`
	Checked      []int  `json:"checked"`
	Completed    bool   `json:"completed"`
	NextUnlocked bool   `json:"next_unlocked"`
}
