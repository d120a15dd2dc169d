package repository

import (
	"context"
	"errors"

	"studyhive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Join-request rejections. These are business outcomes, not failures; the
// handler maps them to success=false responses.
var (
	ErrAlreadyMember  = errors.New("user is already an approved member")
	ErrAlreadyPending = errors.New("join request is already pending")
	ErrGroupFull      = errors.New("group has reached its capacity")
)

// GroupRepository defines the interface for group and membership data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id uint) error
	ListByStatus(ctx context.Context, status string) ([]models.GroupSummary, error)
	ListAll(ctx context.Context) ([]models.GroupSummary, error)
	SetStatus(ctx context.Context, id uint, status, remarks string) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	RequestJoin(ctx context.Context, groupID, userID uint) (*models.GroupMember, error)
	ApproveMember(ctx context.Context, groupID, userID uint) error
	GetMembership(ctx context.Context, groupID, userID uint) (*models.GroupMember, error)
	ListMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
	CountApproved(ctx context.Context, groupID uint) (int64, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Preload("Creator").First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Save(group).Error
}

// Delete removes a group and its dependent rows. Memberships, messages,
// schedules and announcements are scoped by group id, so they go in the
// same transaction.
func (r *groupRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Group{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.Schedule{}).Error; err != nil {
			return err
		}
		return tx.Where("group_id = ?", id).Delete(&models.Announcement{}).Error
	})
}

const memberCountSelect = `groups.*,
(SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = groups.id AND gm.status = 'approved') AS member_count,
users.username AS creator_name`

func (r *groupRepository) ListByStatus(ctx context.Context, status string) ([]models.GroupSummary, error) {
	var summaries []models.GroupSummary
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Select(memberCountSelect).
		Joins("JOIN users ON users.id = groups.creator_id").
		Where("groups.status = ?", status).
		Order("groups.created_at DESC").
		Scan(&summaries).Error
	return summaries, err
}

func (r *groupRepository) ListAll(ctx context.Context) ([]models.GroupSummary, error) {
	var summaries []models.GroupSummary
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Select(memberCountSelect).
		Joins("JOIN users ON users.id = groups.creator_id").
		Order("groups.created_at DESC").
		Scan(&summaries).Error
	return summaries, err
}

func (r *groupRepository) SetStatus(ctx context.Context, id uint, status, remarks string) error {
	res := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "remarks": remarks})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *groupRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// RequestJoin runs the capacity check and the membership insert in one
// transaction holding a row lock on the group, so two concurrent joins
// cannot both pass the check and overfill the group.
func (r *groupRepository) RequestJoin(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	var member *models.GroupMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// SQLite (tests) has no row locks; its single-writer transaction
		// gives the same guarantee there.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var group models.Group
		if err := q.First(&group, groupID).Error; err != nil {
			return err
		}

		var existing models.GroupMember
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&existing).Error
		if err == nil {
			if existing.Status == models.MemberStatusApproved {
				return ErrAlreadyMember
			}
			return ErrAlreadyPending
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var approved int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", groupID, models.MemberStatusApproved).
			Count(&approved).Error; err != nil {
			return err
		}
		if approved >= int64(group.Capacity) {
			return ErrGroupFull
		}

		m := models.GroupMember{GroupID: groupID, UserID: userID, Status: models.MemberStatusPending}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		member = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// ApproveMember flips a pending membership to approved. The capacity check
// and the update run in one transaction holding a row lock on the group, the
// same scheme as RequestJoin, so two concurrent approvals cannot overfill the
// group. Approving an already-approved member is a no-op.
func (r *groupRepository) ApproveMember(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var group models.Group
		if err := q.First(&group, groupID).Error; err != nil {
			return err
		}

		var member models.GroupMember
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
			return err
		}
		if member.Status == models.MemberStatusApproved {
			return nil
		}

		var approved int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", groupID, models.MemberStatusApproved).
			Count(&approved).Error; err != nil {
			return err
		}
		if approved >= int64(group.Capacity) {
			return ErrGroupFull
		}

		return tx.Model(&member).Update("status", models.MemberStatusApproved).Error
	})
}

func (r *groupRepository) GetMembership(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.MemberStatusApproved).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *groupRepository) CountApproved(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ?", groupID, models.MemberStatusApproved).
		Count(&count).Error
	return count, err
}
