package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user   *userTable
		course *courseTable
	}

	userTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*user.User
	}

	courseTable struct {
		sync.RWMutex
		pkCount   int
		table     map[int]*course.Course
		members   map[int][]int // courseID -> userIDs
		exercises *exerciseTable
	}

	exerciseTable struct {
		pkCount   int
		table     map[int]*course.Exercise
		files     map[int]*course.File           // fileID -> file
		filePK    int
		euis      map[int]*course.ExerciseUserInfo // euiID -> record
		euiPK     int
		threads   map[int]*course.CommentThread  // threadID -> thread
		threadPK  int
		commentPK int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		course: &courseTable{
			table:   make(map[int]*course.Course),
			members: make(map[int][]int),
			exercises: &exerciseTable{
				table:   make(map[int]*course.Exercise),
				files:   make(map[int]*course.File),
				euis:    make(map[int]*course.ExerciseUserInfo),
				threads: make(map[int]*course.CommentThread),
			},
		},
	}
	return db, nil
}
