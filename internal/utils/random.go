package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[mrand.Intn(len(commonSurnames))]
	nameLength := mrand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[mrand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// most seeded accounts are plain requesters
var roles = []domain.Role{
	domain.RoleUser,
	domain.RoleUser,
	domain.RoleUser,
	domain.RoleVerificator,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[mrand.Intn(len(roles))]
}

var digits = "0123456789"

// GenerateEmailLocalPart romanises a Chinese name, keeping a random prefix of
// each syllable, and appends a few digits to keep collisions rare.
func GenerateEmailLocalPart(chineseName string) string {
	var sb strings.Builder

	for _, syllable := range pinyin.LazyConvert(chineseName, nil) {
		length := mrand.Intn(len(syllable)) + 1
		sb.WriteString(syllable[:length])
	}

	digitsLength := mrand.Intn(3) + 2
	for i := 0; i < digitsLength; i++ {
		sb.WriteByte(digits[mrand.Intn(len(digits))])
	}

	return sb.String()
}

// GenerateRandomUser builds an active user. The same hash is shared by every
// seeded account so seeding does not pay for bcrypt per user.
func GenerateRandomUser(passwordHash string, emailDomainName string) *domain.User {
	name := GenerateRandomChineseName()

	return &domain.User{
		Name:         name,
		Email:        GenerateEmailLocalPart(name) + "@" + emailDomainName,
		PasswordHash: passwordHash,
		Role:         GenerateRandomRole(),
		Status:       domain.UserStatusActive,
	}
}

// GenerateRandomOTP returns a six digit one-time code.
func GenerateRandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

var permissionTitles = []string{
	"Annual leave", "Sick leave", "Family matters", "Conference trip",
	"Medical appointment", "Moving house", "Wedding", "Training course",
}

var permissionDescriptions = []string{
	"Requesting time off as discussed with my team lead.",
	"Doctor's note will be provided on return.",
	"Travelling out of town, reachable by phone.",
	"Work has been handed over to a colleague.",
}

var permissionStatuses = []domain.PermissionStatus{
	domain.PermissionPending,
	domain.PermissionPending,
	domain.PermissionRevised,
	domain.PermissionApproved,
	domain.PermissionRejected,
	domain.PermissionCancelled,
}

// GenerateRandomPermission builds a permission for owner starting within the
// next month. Decided permissions get reviewer as their verificator.
func GenerateRandomPermission(owner *domain.User, reviewer *domain.User) *domain.Permission {
	start := time.Now().Truncate(24*time.Hour).AddDate(0, 0, mrand.Intn(30)+1)
	end := start.AddDate(0, 0, mrand.Intn(5))

	p := domain.NewPermission(
		owner,
		permissionTitles[mrand.Intn(len(permissionTitles))],
		permissionDescriptions[mrand.Intn(len(permissionDescriptions))],
		start,
		end,
	)

	status := permissionStatuses[mrand.Intn(len(permissionStatuses))]
	if status.IsReviewOutcome() && reviewer != nil {
		comment := "Reviewed during seeding"
		_ = p.Review(reviewer, status, &comment, true)
	} else if status == domain.PermissionCancelled {
		_ = p.CancelBy(owner)
	}

	return p
}
