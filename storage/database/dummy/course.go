package dummydb

import (
	"sort"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type courseRepository struct {
	db    *courseTable
	users *userTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course, users: db.user}
}

func (repo *courseRepository) CreateCourse(c course.Course, creator user.User) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	c.ID = repo.db.pkCount
	repo.db.table[c.ID] = &c
	repo.db.members[c.ID] = []int{creator.ID}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCoursesByMember(username string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, err := repo.getUserByUsername(username)
	if err != nil {
		return nil, err
	}

	courses := make([]course.Course, 0)
	for cID, uIDs := range repo.db.members {
		for _, uID := range uIDs {
			if uID == usr.ID {
				courses = append(courses, *repo.db.table[cID])
				break
			}
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) GetCourseMembers(courseID int) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.table[courseID]; !ok {
		return nil, course.ErrNotFound
	}

	repo.users.RLock()
	defer repo.users.RUnlock()

	ids := repo.db.members[courseID]
	members := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok {
			members = append(members, *usr)
		}
	}
	return members, nil
}

func (repo *courseRepository) AddCourseMembers(courseID int, userIDs ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[courseID]; !ok {
		return course.ErrNotFound
	}

	current := repo.db.members[courseID]
	for _, id := range userIDs {
		var enrolled bool
		for _, cur := range current {
			if cur == id {
				enrolled = true
				break
			}
		}
		if !enrolled {
			current = append(current, id)
		}
	}
	repo.db.members[courseID] = current
	return nil
}

func (repo *courseRepository) CreateExercise(ex course.Exercise) (course.Exercise, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exs := repo.db.exercises
	exs.pkCount++
	ex.ID = exs.pkCount
	exs.table[ex.ID] = &ex
	return ex, nil
}

func (repo *courseRepository) GetExerciseByID(id int) (course.Exercise, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.exercises.table[id]; ok {
		return *ex, nil
	}
	return course.Exercise{}, course.ErrExerciseNotFound
}

func (repo *courseRepository) QueryExercisesByCourse(courseID int) ([]course.Exercise, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exercises := make([]course.Exercise, 0)
	for _, ex := range repo.db.exercises.table {
		if ex.CourseID == courseID {
			exercises = append(exercises, *ex)
		}
	}
	sort.Slice(exercises, func(i, j int) bool { return exercises[i].ID < exercises[j].ID })
	return exercises, nil
}

func (repo *courseRepository) CreateFile(f course.File) (course.File, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exs := repo.db.exercises
	exs.filePK++
	f.ID = exs.filePK
	exs.files[f.ID] = &f
	return f, nil
}

func (repo *courseRepository) GetFileByID(id int) (course.File, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.exercises.files[id]; ok {
		return *f, nil
	}
	return course.File{}, course.ErrFileNotFound
}

func (repo *courseRepository) QueryFilesByExercise(exerciseID int, ownerID *int) ([]course.File, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	files := make([]course.File, 0)
	for _, f := range repo.db.exercises.files {
		if f.ExerciseID != exerciseID {
			continue
		}
		if ownerID == nil {
			if f.OwnerID == nil {
				files = append(files, *f)
			}
		} else if f.OwnerID != nil && *f.OwnerID == *ownerID {
			files = append(files, *f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (repo *courseRepository) CreateExerciseUserInfo(eui course.ExerciseUserInfo) (course.ExerciseUserInfo, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exs := repo.db.exercises
	// at most one record per (exercise, user) pair
	for _, existing := range exs.euis {
		if existing.ExerciseID == eui.ExerciseID && existing.UserID == eui.UserID {
			return *existing, nil
		}
	}
	exs.euiPK++
	eui.ID = exs.euiPK
	exs.euis[eui.ID] = &eui
	return eui, nil
}

func (repo *courseRepository) GetExerciseUserInfo(exerciseID int, username string) (course.ExerciseUserInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, err := repo.getUserByUsername(username)
	if err != nil {
		return course.ExerciseUserInfo{}, course.ErrInfoNotFound
	}
	for _, eui := range repo.db.exercises.euis {
		if eui.ExerciseID == exerciseID && eui.UserID == usr.ID {
			res := *eui
			res.User = usr
			return res, nil
		}
	}
	return course.ExerciseUserInfo{}, course.ErrInfoNotFound
}

func (repo *courseRepository) UpdateExerciseUserInfo(eui course.ExerciseUserInfo) (course.ExerciseUserInfo, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.exercises.euis[eui.ID]
	if !ok {
		return course.ExerciseUserInfo{}, course.ErrInfoNotFound
	}
	orig.Finished = eui.Finished
	orig.UpdatedAt = eui.UpdatedAt
	res := *orig
	res.User = eui.User
	return res, nil
}

func (repo *courseRepository) QueryExerciseUserInfosByExercise(exerciseID int) ([]course.ExerciseUserInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	repo.users.RLock()
	defer repo.users.RUnlock()

	euis := make([]course.ExerciseUserInfo, 0)
	for _, eui := range repo.db.exercises.euis {
		if eui.ExerciseID != exerciseID {
			continue
		}
		res := *eui
		if usr, ok := repo.users.table[eui.UserID]; ok {
			res.User = *usr
		}
		euis = append(euis, res)
	}
	sort.Slice(euis, func(i, j int) bool { return euis[i].ID < euis[j].ID })
	return euis, nil
}

func (repo *courseRepository) CreateCommentThread(th course.CommentThread) (course.CommentThread, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exs := repo.db.exercises
	exs.threadPK++
	th.ID = exs.threadPK
	for i := range th.Comments {
		exs.commentPK++
		th.Comments[i].ID = exs.commentPK
		th.Comments[i].ThreadID = th.ID
	}
	exs.threads[th.ID] = &th
	return th, nil
}

func (repo *courseRepository) QueryCommentThreadsByFile(fileID int) ([]course.CommentThread, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	threads := make([]course.CommentThread, 0)
	for _, th := range repo.db.exercises.threads {
		if th.FileID == fileID {
			threads = append(threads, *th)
		}
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID < threads[j].ID })
	return threads, nil
}

// getUserByUsername expects repo.db to be locked; it takes the user table
// lock itself.
func (repo *courseRepository) getUserByUsername(username string) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	for _, usr := range repo.users.table {
		if usr.Username == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}
