package course_test

import (
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	filestore "github.com/trezcool/darasa/storage/files"
)

func TestCheckMember(t *testing.T) {
	student := user.User{ID: 1, Username: "hero", Roles: []string{user.RoleStudent}}
	teacher := user.User{ID: 2, Username: "prof", Roles: user.AllRoles}
	members := []user.User{student, teacher}

	tests := []struct {
		name        string
		members     []user.User
		username    string
		teacherOnly bool
		wantErr     error
	}{
		{name: "member", members: members, username: "hero"},
		{name: "teacher member", members: members, username: "prof", teacherOnly: true},
		{name: "teacher without restriction", members: members, username: "prof"},
		{name: "student fails teacher check", members: members, username: "hero", teacherOnly: true, wantErr: course.ErrNotInCourse},
		{name: "non-member", members: members, username: "lol", wantErr: course.ErrNotInCourse},
		{name: "no members", members: nil, username: "hero", wantErr: course.ErrNotInCourse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := course.CheckMember(tt.members, tt.username, tt.teacherOnly); err != tt.wantErr {
				t.Errorf("CheckMember() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type fixture struct {
	svc     course.Service
	repo    course.Repository
	usrRepo user.Repository
	teacher user.User
	student user.User
	course  course.Course
	ex      course.Exercise
}

func newFixture(t *testing.T) *fixture {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewCourseRepository(db)
	usrRepo := dummydb.NewUserRepository(db)

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New() failed: %v", err)
	}

	f := &fixture{
		svc:     course.NewService(repo, usrRepo, store),
		repo:    repo,
		usrRepo: usrRepo,
	}

	now := time.Now().UTC()
	f.teacher, err = usrRepo.CreateUser(user.User{Username: "prof", Email: "prof@test.cd", Roles: user.AllRoles, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	f.student, err = usrRepo.CreateUser(user.User{Username: "hero", Email: "hero@test.cd", Roles: []string{user.RoleStudent}, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	f.course, err = f.svc.Create(course.NewCourse{Name: "Programming 101"}, f.teacher)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err = repo.AddCourseMembers(f.course.ID, f.student.ID); err != nil {
		t.Fatalf("AddCourseMembers() failed: %v", err)
	}
	f.ex, err = f.svc.CreateExercise(f.course.ID, f.teacher.Username, course.NewExercise{Name: "Exercise 1: Hello World"})
	if err != nil {
		t.Fatalf("CreateExercise() failed: %v", err)
	}
	return f
}

func Test_service_Create_studentsNotAllowed(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Create(course.NewCourse{Name: "Programming 102"}, f.student); err != course.ErrNotInCourse {
		t.Errorf("Create() error = %v, wantErr %v", err, course.ErrNotInCourse)
	}
}

func Test_service_QueryFiles(t *testing.T) {
	f := newFixture(t)

	// first pull: no files, no template; the tracker record is created once
	files, err := f.svc.QueryFiles(f.ex.ID, f.student.Username)
	if err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("QueryFiles() = %v; want none", files)
	}
	if _, err = f.repo.GetExerciseUserInfo(f.ex.ID, f.student.Username); err != nil {
		t.Fatalf("tracker record not created: %v", err)
	}

	// pulling again must not create a second record
	if _, err = f.svc.QueryFiles(f.ex.ID, f.student.Username); err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}
	euis, err := f.repo.QueryExerciseUserInfosByExercise(f.ex.ID)
	if err != nil {
		t.Fatalf("QueryExerciseUserInfosByExercise() failed: %v", err)
	}
	if len(euis) != 1 {
		t.Fatalf("len(euis) = %d; want 1", len(euis))
	}

	// template fallback
	tmpl, err := f.svc.AddFile(f.ex.ID, f.teacher.Username, "main.go", strings.NewReader("package main"), true /* template */)
	if err != nil {
		t.Fatalf("AddFile() failed: %v", err)
	}
	if !tmpl.IsTemplate() {
		t.Error("AddFile() template has an owner")
	}
	files, err = f.svc.QueryFiles(f.ex.ID, f.student.Username)
	if err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}
	if len(files) != 1 || files[0].ID != tmpl.ID {
		t.Errorf("QueryFiles() = %v; want just the template", files)
	}

	// own submission shadows the template
	own, err := f.svc.AddFile(f.ex.ID, f.student.Username, "solution.go", strings.NewReader("package main"), false)
	if err != nil {
		t.Fatalf("AddFile() failed: %v", err)
	}
	files, err = f.svc.QueryFiles(f.ex.ID, f.student.Username)
	if err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}
	if len(files) != 1 || files[0].ID != own.ID {
		t.Errorf("QueryFiles() = %v; want just the submission", files)
	}
}

func Test_service_AddFile_templateIsTeacherOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddFile(f.ex.ID, f.student.Username, "main.go", strings.NewReader("package main"), true /* template */)
	if err != course.ErrNotInCourse {
		t.Errorf("AddFile() error = %v, wantErr %v", err, course.ErrNotInCourse)
	}
}

func Test_service_UpdateExerciseUserInfo(t *testing.T) {
	f := newFixture(t)

	// no record yet: no write happens
	if _, err := f.svc.UpdateExerciseUserInfo(f.ex.ID, f.student.Username, true); err != course.ErrInfoNotFound {
		t.Fatalf("UpdateExerciseUserInfo() error = %v, wantErr %v", err, course.ErrInfoNotFound)
	}
	if _, err := f.repo.GetExerciseUserInfo(f.ex.ID, f.student.Username); err != course.ErrInfoNotFound {
		t.Fatalf("update created a tracker record; err = %v", err)
	}

	if _, err := f.svc.QueryFiles(f.ex.ID, f.student.Username); err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}

	eui, err := f.svc.UpdateExerciseUserInfo(f.ex.ID, f.student.Username, true)
	if err != nil {
		t.Fatalf("UpdateExerciseUserInfo() failed: %v", err)
	}
	if !eui.Finished {
		t.Error("UpdateExerciseUserInfo() Finished = false; want true")
	}

	eui, err = f.svc.UpdateExerciseUserInfo(f.ex.ID, f.student.Username, false)
	if err != nil {
		t.Fatalf("UpdateExerciseUserInfo() failed: %v", err)
	}
	if eui.Finished {
		t.Error("UpdateExerciseUserInfo() Finished = true; want false")
	}
}

func Test_service_GetAllStudentExerciseUserInfo(t *testing.T) {
	f := newFixture(t)

	// an exercise without tracker records reads as a missing exercise
	if _, err := f.svc.GetAllStudentExerciseUserInfo(f.ex.ID, f.teacher.Username); err != course.ErrExerciseNotFound {
		t.Fatalf("GetAllStudentExerciseUserInfo() error = %v, wantErr %v", err, course.ErrExerciseNotFound)
	}

	// the teacher works through the exercise too; their record is hidden
	if _, err := f.svc.QueryFiles(f.ex.ID, f.student.Username); err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}
	if _, err := f.svc.QueryFiles(f.ex.ID, f.teacher.Username); err != nil {
		t.Fatalf("QueryFiles() failed: %v", err)
	}

	if _, err := f.svc.GetAllStudentExerciseUserInfo(f.ex.ID, f.student.Username); err != course.ErrNotInCourse {
		t.Fatalf("GetAllStudentExerciseUserInfo() error = %v, wantErr %v", err, course.ErrNotInCourse)
	}

	euis, err := f.svc.GetAllStudentExerciseUserInfo(f.ex.ID, f.teacher.Username)
	if err != nil {
		t.Fatalf("GetAllStudentExerciseUserInfo() failed: %v", err)
	}
	if len(euis) != 1 {
		t.Fatalf("len(euis) = %d; want 1", len(euis))
	}
	if euis[0].User.Username != f.student.Username {
		t.Errorf("User = %q; want %q", euis[0].User.Username, f.student.Username)
	}
}
