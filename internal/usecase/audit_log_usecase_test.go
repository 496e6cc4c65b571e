package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
	"pos/internal/usecase"
)

func TestAuditLogUsecase_List_BuildsFilter(t *testing.T) {
	auditRepo := new(AuditRepoMock)
	tx := &TxManagerMock{Repos: &TxReposMock{audit: auditRepo}}
	tx.On("WithinTx", mock.Anything).Return()

	from := testNow.Add(-24 * time.Hour)
	action := model.AuditActionUpdateStock
	rt := model.AuditResourceInventory
	actor := managerID
	want := repo.AuditLogFilter{
		ActorUserID:  &actor,
		Action:       &action,
		ResourceType: &rt,
		CreatedFrom:  &from,
		Limit:        20,
		Offset:       40,
	}
	auditRepo.On("List", mock.Anything, want).Return([]model.AuditLog{{ID: 1, Action: action}}, nil)

	uc := usecase.NewAuditLogUsecase(tx, time.Second)
	out, err := uc.List(context.Background(), usecase.ListAuditLogsInput{
		ActorUserID:  managerID,
		Action:       "UPDATE_STOCK",
		ResourceType: " inventory ",
		From:         &from,
		Limit:        20,
		Offset:       40,
	})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 20, out.Limit)
	assert.Equal(t, 40, out.Offset)
	auditRepo.AssertExpectations(t)
}

func TestAuditLogUsecase_List_DefaultsAndEmpty(t *testing.T) {
	auditRepo := new(AuditRepoMock)
	tx := &TxManagerMock{Repos: &TxReposMock{audit: auditRepo}}
	tx.On("WithinTx", mock.Anything).Return()
	auditRepo.On("List", mock.Anything, repo.AuditLogFilter{Limit: 50}).Return(nil, nil)

	out, err := usecase.NewAuditLogUsecase(tx, time.Second).List(context.Background(), usecase.ListAuditLogsInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
	assert.Equal(t, 50, out.Limit)
}

func TestAuditLogUsecase_List_Validation(t *testing.T) {
	tx := &TxManagerMock{}
	uc := usecase.NewAuditLogUsecase(tx, time.Second)

	cases := []struct {
		name string
		in   usecase.ListAuditLogsInput
		want string
	}{
		{"negative offset", usecase.ListAuditLogsInput{Offset: -1}, "invalid offset"},
		{"limit too large", usecase.ListAuditLogsInput{Limit: 201}, "invalid limit"},
		{"unknown action", usecase.ListAuditLogsInput{Action: "DELETE_EVERYTHING"}, "invalid action"},
		{"unknown resource", usecase.ListAuditLogsInput{ResourceType: "user"}, "invalid resource_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.List(context.Background(), tc.in)
			assertKind(t, err, usecase.KindValidation)
			assertErrContains(t, err, tc.want)
		})
	}
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}
