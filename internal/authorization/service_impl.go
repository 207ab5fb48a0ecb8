package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/staypoint/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRoom         = "room"
	ObjectRoomCategory = "room_category"
	ObjectBooking      = "booking"
	ObjectFolio        = "folio"
	ObjectBarSale      = "bar_sale"
	ObjectExpense      = "expense"
	ObjectOtherRevenue = "other_revenue"
	ObjectAccounting   = "accounting"
	ObjectAPIKey       = "api_key"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionRoomView        = "room.view"
	ActionRoomCreate      = "room.create"
	ActionRoomUpdate      = "room.update"
	ActionRoomMaintenance = "room.maintenance"

	ActionRoomCategoryView   = "room_category.view"
	ActionRoomCategoryCreate = "room_category.create"
	ActionRoomCategoryUpdate = "room_category.update"

	ActionBookingView         = "booking.view"
	ActionBookingCreate       = "booking.create"
	ActionBookingCheckIn      = "booking.check_in"
	ActionBookingCheckOut     = "booking.check_out"
	ActionBookingCancel       = "booking.cancel"
	ActionBookingExtend       = "booking.extend"
	ActionBookingChangeRoom   = "booking.change_room"
	ActionBookingOverride     = "booking.override"
	ActionBookingRateOverride = "booking.rate_override"

	ActionFolioView          = "folio.view"
	ActionFolioRecordPayment = "folio.record_payment"

	ActionBarSaleView   = "bar_sale.view"
	ActionBarSaleCreate = "bar_sale.create"
	ActionBarSaleIngest = "bar_sale.ingest"

	ActionExpenseView   = "expense.view"
	ActionExpenseCreate = "expense.create"

	ActionOtherRevenueView   = "other_revenue.view"
	ActionOtherRevenueCreate = "other_revenue.create"

	ActionAccountingView       = "accounting.view"
	ActionAccountingConnect    = "accounting.connect"
	ActionAccountingDisconnect = "accounting.disconnect"
	ActionAccountingResync     = "accounting.resync"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, businessID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return ErrInvalidBusiness
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, businessID)
	if err != nil {
		s.auditDenied(ctx, businessID, actor, object, action)
		return err
	}

	domain := fmt.Sprintf("biz:%s", businessID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, businessID, actor, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, businessID, actor, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, businessID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "api_key:") {
		// API keys pass scope checks upstream; here they carry the system role.
		apiKeyID, err := snowflake.ParseString(strings.TrimPrefix(actor, "api_key:"))
		if err != nil || apiKeyID == 0 {
			return "", "", ErrInvalidActor
		}
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedBusinessID, err := snowflake.ParseString(businessID)
		if err != nil || parsedBusinessID == 0 {
			return actor, "", ErrInvalidBusiness
		}
		role, err := s.roleForUser(ctx, parsedBusinessID, userID)
		if err != nil {
			return actor, "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, businessID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM business_members
		 WHERE business_id = ? AND user_id = ?
		 LIMIT 1`,
		businessID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, businessID string, actor string, object string, action string) {
	s.auditCapability(ctx, businessID, "authorization.denied", actor, object, action)
}

func (s *ServiceImpl) auditGranted(ctx context.Context, businessID string, actor string, object string, action string) {
	s.auditCapability(ctx, businessID, "authorization.granted", actor, object, action)
}

func (s *ServiceImpl) auditCapability(ctx context.Context, businessID string, event string, actor string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedBusinessID, err := snowflake.ParseString(businessID)
	if err != nil || parsedBusinessID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, parsedBusinessID, event, "authorization", &targetID, map[string]any{
		"subject": actor,
		"object":  object,
		"action":  action,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionBookingOverride, ActionBookingRateOverride, ActionRoomMaintenance,
		ActionAccountingConnect, ActionAccountingDisconnect, ActionAccountingResync,
		ActionAPIKeyCreate, ActionAPIKeyRevoke:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	frontDesk := [][]string{
		{ObjectRoom, ActionRoomView},
		{ObjectRoomCategory, ActionRoomCategoryView},
		{ObjectBooking, ActionBookingView},
		{ObjectBooking, ActionBookingCreate},
		{ObjectBooking, ActionBookingCheckIn},
		{ObjectBooking, ActionBookingCheckOut},
		{ObjectBooking, ActionBookingCancel},
		{ObjectBooking, ActionBookingExtend},
		{ObjectBooking, ActionBookingChangeRoom},
		{ObjectFolio, ActionFolioView},
		{ObjectFolio, ActionFolioRecordPayment},
		{ObjectBarSale, ActionBarSaleView},
		{ObjectBarSale, ActionBarSaleCreate},
		{ObjectExpense, ActionExpenseView},
		{ObjectExpense, ActionExpenseCreate},
		{ObjectOtherRevenue, ActionOtherRevenueView},
		{ObjectOtherRevenue, ActionOtherRevenueCreate},
		{ObjectAccounting, ActionAccountingView},
	}
	managerial := [][]string{
		{ObjectRoom, ActionRoomCreate},
		{ObjectRoom, ActionRoomUpdate},
		{ObjectRoom, ActionRoomMaintenance},
		{ObjectRoomCategory, ActionRoomCategoryCreate},
		{ObjectRoomCategory, ActionRoomCategoryUpdate},
		{ObjectBooking, ActionBookingOverride},
		{ObjectBooking, ActionBookingRateOverride},
		{ObjectAccounting, ActionAccountingConnect},
		{ObjectAccounting, ActionAccountingDisconnect},
		{ObjectAccounting, ActionAccountingResync},
		{ObjectAPIKey, ActionAPIKeyView},
		{ObjectAPIKey, ActionAPIKeyCreate},
		{ObjectAPIKey, ActionAPIKeyRevoke},
		{ObjectAuditLog, ActionAuditLogView},
	}
	machine := [][]string{
		{ObjectRoom, ActionRoomView},
		{ObjectBooking, ActionBookingView},
		{ObjectBarSale, ActionBarSaleView},
		{ObjectBarSale, ActionBarSaleCreate},
		{ObjectBarSale, ActionBarSaleIngest},
		{ObjectOtherRevenue, ActionOtherRevenueCreate},
	}

	policies := make([][]string, 0, 3*len(frontDesk)+2*len(managerial)+len(machine))
	for _, rule := range frontDesk {
		policies = append(policies,
			[]string{"role:receptionist", rule[0], rule[1]},
			[]string{"role:manager", rule[0], rule[1]},
			[]string{"role:owner", rule[0], rule[1]},
		)
	}
	for _, rule := range managerial {
		policies = append(policies,
			[]string{"role:manager", rule[0], rule[1]},
			[]string{"role:owner", rule[0], rule[1]},
		)
	}
	for _, rule := range machine {
		policies = append(policies, []string{"role:system", rule[0], rule[1]})
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
