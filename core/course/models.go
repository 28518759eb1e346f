package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Course struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Exercise struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// File is a file belonging to an exercise: part of the shared template when
// OwnerID is nil, part of a specific student's submission otherwise.
type File struct {
	ID         int       `json:"id"`
	ExerciseID int       `json:"exercise_id"`
	OwnerID    *int      `json:"owner_id,omitempty"`
	Name       string    `json:"name"`
	Path       string    `json:"-"` // location in the file store
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (f File) IsTemplate() bool { return f.OwnerID == nil }

// ExerciseUserInfo tracks one user's completion state for one exercise.
// At most one record exists per (exercise, user) pair; it is created lazily
// the first time the user pulls the exercise files and is never deleted.
type ExerciseUserInfo struct {
	ID         int       `json:"id"`
	ExerciseID int       `json:"exercise_id"`
	UserID     int       `json:"-"`
	User       user.User `json:"user"`
	Finished   bool      `json:"finished"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// CommentThread groups comments attached to a specific line of a file.
type CommentThread struct {
	ID        int       `json:"id"`
	FileID    int       `json:"file_id"`
	Line      int       `json:"line"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Comment struct {
	ID        int       `json:"id"`
	ThreadID  int       `json:"thread_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Inputs

type NewCourse struct {
	Name string `json:"name" validate:"required,min=10,max=100"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewExercise struct {
	Name string `json:"name" validate:"required,min=10,max=100"`
}

func (ne *NewExercise) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	return validate.Struct(ne)
}

type NewComment struct {
	Body string `json:"body" validate:"required"`
}

type NewCommentThread struct {
	Line     int          `json:"line" validate:"min=0"`
	Comments []NewComment `json:"comments" validate:"required,min=1,dive"`
}

func (nt *NewCommentThread) Validate(validate *validator.Validate) error {
	for i := range nt.Comments {
		nt.Comments[i].Body = core.CleanString(nt.Comments[i].Body)
	}
	return validate.Struct(nt)
}

type AddMembers struct {
	Usernames []string `json:"usernames" validate:"required,min=1"`
}

func (am *AddMembers) Validate(validate *validator.Validate) error {
	for i, uname := range am.Usernames {
		am.Usernames[i] = core.CleanString(uname, true /* lower */)
	}
	return validate.Struct(am)
}

type UpdateExerciseUserInfo struct {
	Finished bool `json:"finished"`
}
