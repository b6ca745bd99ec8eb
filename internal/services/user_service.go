package services

import (
	"github.com/careertrack/careertrack/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// FindOrCreate resolves an email to a user row, creating it on first
// sight. The API has no signup flow; identity arrives on the request.
func (s *UserService) FindOrCreate(email string) (*models.User, error) {
	var user models.User
	err := s.DB.Where(models.User{Email: email}).FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
