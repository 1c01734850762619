// Package mysql 订单通知聚合状态的 MySQL 存储实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// PartialOrderModel 聚合记录的数据库模型
type PartialOrderModel struct {
	gorm.Model
	ClientOrderID string        `gorm:"uniqueIndex;type:varchar(64);not null"`
	NewMsgID      int64         `gorm:"not null;default:0"`
	FillMsgID     int64         `gorm:"not null;default:0"`
	Fills         []domain.Fill `gorm:"type:json;serializer:json"`
}

// TableName 指定表名
func (PartialOrderModel) TableName() string {
	return "partial_orders"
}

// PartialOrderRepository 实现 domain.PartialOrderRepository
type PartialOrderRepository struct {
	db *gorm.DB
}

// NewPartialOrderRepository 创建聚合记录仓储
func NewPartialOrderRepository(db *gorm.DB) *PartialOrderRepository {
	return &PartialOrderRepository{db: db}
}

// FindOrder 查询聚合记录，不存在时返回 (nil, nil)
func (r *PartialOrderRepository) FindOrder(ctx context.Context, clientOrderID string) (*domain.PartialOrderRecord, error) {
	var model PartialOrderModel
	err := r.db.WithContext(ctx).Where("client_order_id = ?", clientOrderID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find partial order: %w", err)
	}
	return model.toDomain(), nil
}

// SaveNewOrderMessage 记录订单创建通知的消息 id
func (r *PartialOrderRepository) SaveNewOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error {
	model := PartialOrderModel{ClientOrderID: clientOrderID, NewMsgID: messageID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"new_msg_id", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save new order message: %w", err)
	}
	return nil
}

// SaveFillOrderMessage 记录成交通知的消息 id
func (r *PartialOrderRepository) SaveFillOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error {
	model := PartialOrderModel{ClientOrderID: clientOrderID, FillMsgID: messageID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fill_msg_id", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save fill order message: %w", err)
	}
	return nil
}

// AppendFill 追加一次成交增量，记录不存在时创建
func (r *PartialOrderRepository) AppendFill(ctx context.Context, clientOrderID string, fill domain.Fill) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PartialOrderModel
		err := tx.Where("client_order_id = ?", clientOrderID).First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = PartialOrderModel{ClientOrderID: clientOrderID}
		} else if err != nil {
			return err
		}
		model.Fills = append(model.Fills, fill)
		return tx.Save(&model).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append fill: %w", err)
	}
	return nil
}

// DeleteOrder 删除聚合记录。必须物理删除，软删除会与
// client_order_id 的唯一索引冲突，阻止同名订单重建记录。
func (r *PartialOrderRepository) DeleteOrder(ctx context.Context, clientOrderID string) error {
	err := r.db.WithContext(ctx).Unscoped().
		Where("client_order_id = ?", clientOrderID).
		Delete(&PartialOrderModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete partial order: %w", err)
	}
	return nil
}

// SummarizePartialOrders 汇总累计利润与手续费，记录不存在时返回 (nil, nil)
func (r *PartialOrderRepository) SummarizePartialOrders(ctx context.Context, clientOrderID string, terminal domain.Fill) (*domain.PartialsSummary, error) {
	record, err := r.FindOrder(ctx, clientOrderID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	summary := record.Summarize(terminal)
	return &summary, nil
}

func (m *PartialOrderModel) toDomain() *domain.PartialOrderRecord {
	return &domain.PartialOrderRecord{
		ClientOrderID: m.ClientOrderID,
		NewMsgID:      m.NewMsgID,
		FillMsgID:     m.FillMsgID,
		Fills:         m.Fills,
	}
}
