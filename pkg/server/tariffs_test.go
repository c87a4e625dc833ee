package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/types"
)

func TestHandleListTariffs(t *testing.T) {
	srv := newTestServer(new(mockStorage))

	req := httptest.NewRequest("GET", "/api/list/tariffs", nil)
	w := httptest.NewRecorder()

	srv.handleListTariffs(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var infos []types.TariffInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "test_residential", infos[0].ID)
}

func TestHandleListHouseholds(t *testing.T) {
	t.Run("Authorized", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)
		srv.adminEmails = []string{"admin@example.com"}

		mockDB.On("ListHouseholds", mock.Anything).Return([]types.Household{
			{ID: "home1"},
		}, nil).Once()

		req := httptest.NewRequest("GET", "/api/list/households", nil)
		req = withUser(req, types.User{ID: "admin1", Email: "admin@example.com"})
		w := httptest.NewRecorder()

		srv.handleListHouseholds(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var households []types.Household
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &households))
		require.Len(t, households, 1)
		assert.Equal(t, "home1", households[0].ID)
		mockDB.AssertExpectations(t)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		mockDB := new(mockStorage)
		srv := newTestServer(mockDB)
		srv.adminEmails = []string{"admin@example.com"}

		req := httptest.NewRequest("GET", "/api/list/households", nil)
		req = withUser(req, types.User{ID: "user1", Email: "user@example.com"})
		w := httptest.NewRecorder()

		srv.handleListHouseholds(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
