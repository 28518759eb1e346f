package user_test

import (
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func newService(t *testing.T) (user.Service, user.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo, emailsvc.NewConsoleServiceMock()), repo
}

func Test_service_Register(t *testing.T) {
	svc, _ := newService(t)

	nu := user.NewUser{
		Email:    "hero@test.cd",
		Username: "hero",
		Password: "LobiMakasi",
		Name:     "Hero",
		LastName: "Mock",
	}

	usr, err := svc.Register(nu, false)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if usr.ID == 0 {
		t.Error("Register() did not assign an ID")
	}
	if !usr.IsStudent() || usr.IsTeacher() {
		t.Errorf("Register() roles = %v; want student only", usr.Roles)
	}
	if err = usr.CheckPassword("LobiMakasi"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if err = usr.CheckPassword("lol"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}

	// teachers can also work through exercises themselves
	nu.Email = "prof@test.cd"
	nu.Username = "prof"
	prof, err := svc.Register(nu, true)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !prof.IsTeacher() || !prof.IsStudent() {
		t.Errorf("Register() roles = %v; want both", prof.Roles)
	}
}

func Test_service_CheckUniqueness(t *testing.T) {
	svc, _ := newService(t)

	nu := user.NewUser{
		Email:    "hero@test.cd",
		Username: "hero",
		Password: "LobiMakasi",
		Name:     "Hero",
		LastName: "Mock",
	}
	if _, err := svc.Register(nu, false); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	tests := []struct {
		name      string
		uname     string
		email     string
		wantField string
	}{
		{name: "available", uname: "king", email: "king@test.cd"},
		{name: "username taken", uname: "hero", email: "king@test.cd", wantField: "username"},
		{name: "email taken", uname: "king", email: "hero@test.cd", wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUniqueness(tt.uname, tt.email)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("CheckUniqueness() error = %v, want nil", err)
				}
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("CheckUniqueness() error = %v, want *core.ValidationError", err)
			}
			if len(vErr.Fields) != 1 || vErr.Fields[0].Field != tt.wantField {
				t.Errorf("Fields = %v; want field %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func Test_service_GetByUsernameOrEmail(t *testing.T) {
	svc, _ := newService(t)

	nu := user.NewUser{
		Email:    "hero@test.cd",
		Username: "hero",
		Password: "LobiMakasi",
		Name:     "Hero",
		LastName: "Mock",
	}
	if _, err := svc.Register(nu, false); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if _, err := svc.GetByUsernameOrEmail("hero"); err != nil {
		t.Errorf("GetByUsernameOrEmail(username) failed: %v", err)
	}
	if _, err := svc.GetByUsernameOrEmail("hero@test.cd"); err != nil {
		t.Errorf("GetByUsernameOrEmail(email) failed: %v", err)
	}
	// lookups are case-insensitive on input
	if _, err := svc.GetByUsernameOrEmail("  HERO  "); err != nil {
		t.Errorf("GetByUsernameOrEmail(messy input) failed: %v", err)
	}
	if _, err := svc.GetByUsernameOrEmail("lol"); err != user.ErrNotFound {
		t.Errorf("GetByUsernameOrEmail(unknown) error = %v, wantErr %v", err, user.ErrNotFound)
	}
}
