package user

import (
	"testing"

	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserTestSuite struct {
	suite.Suite
}

func (suite *UserTestSuite) TestNewUser() {
	suite.Run("ValidInput_ShouldCreateActiveUser", func() {
		u, err := NewUser("  Ada@Example.com ", "Ada", "correct-horse")

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "ada@example.com", u.Email())
		assert.Equal(suite.T(), RoleUser, u.Role())
		assert.True(suite.T(), u.IsActive())
		assert.False(suite.T(), u.IsAdmin())
		assert.NotEqual(suite.T(), "correct-horse", u.PasswordHash())
		assert.Equal(suite.T(), DefaultPreferences().MealTypes, u.Preferences().MealTypes)

		events := u.Events()
		require.Len(suite.T(), events, 1)
		assert.Equal(suite.T(), "user.registered", events[0].EventName())
	})

	suite.Run("InvalidEmail_ShouldFail", func() {
		_, err := NewUser("not-an-email", "Ada", "correct-horse")
		assert.Equal(suite.T(), ErrInvalidEmail, err)

		_, err = NewUser("", "Ada", "correct-horse")
		assert.Equal(suite.T(), ErrEmailRequired, err)
	})

	suite.Run("ShortPassword_ShouldFail", func() {
		_, err := NewUser("ada@example.com", "Ada", "short")
		assert.Equal(suite.T(), ErrPasswordTooShort, err)
	})

	suite.Run("ShortName_ShouldFail", func() {
		_, err := NewUser("ada@example.com", " A ", "correct-horse")
		assert.Equal(suite.T(), ErrInvalidName, err)
	})
}

func (suite *UserTestSuite) TestPasswords() {
	u, err := NewUser("ada@example.com", "Ada", "correct-horse")
	require.NoError(suite.T(), err)

	suite.Run("CheckPassword_Matches", func() {
		assert.NoError(suite.T(), u.CheckPassword("correct-horse"))
		assert.Error(suite.T(), u.CheckPassword("wrong-horse"))
	})

	suite.Run("ChangePassword_WrongCurrent_ShouldFail", func() {
		assert.Equal(suite.T(), ErrWrongPassword, u.ChangePassword("nope-nope", "battery-staple"))
	})

	suite.Run("ChangePassword_ShouldReplaceHash", func() {
		require.NoError(suite.T(), u.ChangePassword("correct-horse", "battery-staple"))
		assert.NoError(suite.T(), u.CheckPassword("battery-staple"))
	})
}

func (suite *UserTestSuite) TestPreferencesAndRoles() {
	u, err := NewUser("ada@example.com", "Ada", "correct-horse")
	require.NoError(suite.T(), err)

	suite.Run("UpdatePreferences_Valid", func() {
		prefs := Preferences{
			MealTypes:   []recipe.MealType{recipe.MealTypeDinner},
			CookingDays: []shared.Day{shared.Monday, shared.Thursday},
		}
		require.NoError(suite.T(), u.UpdatePreferences(prefs))
		assert.Equal(suite.T(), prefs, u.Preferences())
	})

	suite.Run("UpdatePreferences_NoMealTypes_ShouldFail", func() {
		assert.Equal(suite.T(), ErrNoMealTypes, u.UpdatePreferences(Preferences{}))
	})

	suite.Run("UpdatePreferences_BadDay_ShouldFail", func() {
		err := u.UpdatePreferences(Preferences{
			MealTypes:   []recipe.MealType{recipe.MealTypeLunch},
			CookingDays: []shared.Day{"funday"},
		})
		assert.Equal(suite.T(), shared.ErrInvalidDay, err)
	})

	suite.Run("UpdatePreferences_Repeats_ShouldFail", func() {
		err := u.UpdatePreferences(Preferences{
			MealTypes: []recipe.MealType{recipe.MealTypeLunch, recipe.MealTypeLunch},
		})
		assert.Equal(suite.T(), ErrDuplicatePreference, err)

		err = u.UpdatePreferences(Preferences{
			MealTypes:   []recipe.MealType{recipe.MealTypeLunch},
			CookingDays: []shared.Day{shared.Monday, shared.Monday},
		})
		assert.Equal(suite.T(), ErrDuplicatePreference, err)
	})

	suite.Run("SetRole_Admin", func() {
		require.NoError(suite.T(), u.SetRole(RoleAdmin))
		assert.True(suite.T(), u.IsAdmin())
		assert.Equal(suite.T(), ErrInvalidRole, u.SetRole("owner"))
	})
}

func (suite *UserTestSuite) TestReconstruct() {
	suite.Run("MissingMealTypes_ShouldDefault", func() {
		u := ReconstructUser(Snapshot{Email: "x@y.z", Role: "bogus"})

		assert.Equal(suite.T(), RoleUser, u.Role())
		assert.Equal(suite.T(), DefaultPreferences().MealTypes, u.Preferences().MealTypes)
		assert.Empty(suite.T(), u.Events())
	})
}

func TestProfile_CaloricNeeds(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    int
	}{
		{
			name:    "explicit target wins",
			profile: Profile{DailyCalorieTarget: 1850, Age: 30, Sex: SexMale, HeightCm: 180, WeightKg: 80, ActivityLevel: ActivityModerate},
			want:    1850,
		},
		{
			name:    "male moderate maintain",
			profile: Profile{Age: 30, Sex: SexMale, HeightCm: 180, WeightKg: 80, ActivityLevel: ActivityModerate, Goal: GoalMaintain},
			want:    2759,
		},
		{
			name:    "male moderate gain",
			profile: Profile{Age: 30, Sex: SexMale, HeightCm: 180, WeightKg: 80, ActivityLevel: ActivityModerate, Goal: GoalGain},
			want:    3059,
		},
		{
			name:    "deficit floors at minimum",
			profile: Profile{Age: 25, Sex: SexFemale, HeightCm: 165, WeightKg: 60, ActivityLevel: ActivitySedentary, Goal: GoalLose},
			want:    MinDailyCalories,
		},
		{
			name:    "incomplete profile is unknown",
			profile: Profile{Age: 30, Sex: SexMale, ActivityLevel: ActivityModerate},
			want:    0,
		},
		{
			name:    "missing sex is unknown",
			profile: Profile{Age: 30, HeightCm: 180, WeightKg: 80, ActivityLevel: ActivityModerate},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.CaloricNeeds())
		})
	}
}

func TestProfile_Validate(t *testing.T) {
	assert.NoError(t, Profile{}.Validate())
	assert.Equal(t, ErrInvalidProfile, Profile{Age: 150}.Validate())
	assert.Equal(t, ErrInvalidProfile, Profile{ActivityLevel: "couch"}.Validate())
	assert.Equal(t, ErrInvalidProfile, Profile{Goal: "bulk"}.Validate())
}

func TestUserTestSuite(t *testing.T) {
	suite.Run(t, new(UserTestSuite))
}
