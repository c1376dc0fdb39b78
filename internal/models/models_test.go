package models_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-portal/internal/models"
	"rental-portal/internal/testutil"
)

type fixedTokens string

func (f fixedTokens) MakeUserToken(userID uint, context string) string {
	return fmt.Sprintf("%s-%d-%s", string(f), userID, context)
}

func TestProperty_SoftDelete(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	p := fx.Property(fx.LandlordProfile(fx.User("owner"), models.LandlordKindIndividual), "Studio")

	require.NoError(t, p.SoftDelete(db))

	var stored models.Property
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.True(t, stored.IsDeleted())
	assert.False(t, stored.IsListed)
	assert.NotNil(t, stored.RemovedAt)
	assert.Equal(t, "Studio", stored.Title)
}

func TestLandlordProfile_Dependents(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)

	company := fx.LandlordProfile(fx.User("owner"), models.LandlordKindCompany)
	a := fx.Property(company, "A")
	fx.DeletedProperty(company, "B")
	m := fx.Membership(company, fx.User("agent"))
	gone := fx.Membership(company, fx.User("former"))
	require.NoError(t, gone.SoftDelete(db))

	deps, err := company.Dependents(db)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, models.ModelTagCompanyMembership, deps[0].ModelTag())
	assert.Equal(t, m.ID, deps[0].ObjectID())
	assert.Equal(t, models.ModelTagProperty, deps[1].ModelTag())
	assert.Equal(t, a.ID, deps[1].ObjectID())

	individual := fx.LandlordProfile(fx.User("solo"), models.LandlordKindIndividual)
	fx.Membership(individual, fx.User("helper"))
	deps, err = individual.Dependents(db)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestReview_ScrubbableContent(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	author := fx.User("jane")
	fx.UserProfile(author, "+351 912 345 678")
	property := fx.Property(fx.LandlordProfile(fx.User("owner"), models.LandlordKindIndividual), "A")

	review := fx.Review(property, author, "nice")
	content, known, err := review.ScrubbableContent(db)
	require.NoError(t, err)
	assert.Equal(t, "nice", content)
	assert.ElementsMatch(t, []string{author.Email, "+351 912 345 678"}, known)

	empty := fx.Review(property, author, "")
	content, known, err = empty.ScrubbableContent(db)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, known)
}

func TestReview_SoftDeleteKeepsOrReplacesContent(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	author := fx.User("jane")
	property := fx.Property(fx.LandlordProfile(fx.User("owner"), models.LandlordKindIndividual), "A")

	kept := fx.Review(property, author, "original text")
	require.NoError(t, kept.SoftDelete(db))
	replaced := fx.Review(property, author, "original text")
	require.NoError(t, replaced.SoftDeleteWithContent(db, "clean text"))

	var got models.Review
	require.NoError(t, db.First(&got, kept.ID).Error)
	assert.True(t, got.IsDeleted())
	assert.Equal(t, "original text", got.Feedback)

	require.NoError(t, db.First(&got, replaced.ID).Error)
	assert.True(t, got.IsDeleted())
	assert.Equal(t, "clean text", got.Feedback)
}

func TestUserProfile_PrivacyDelete(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	user := fx.User("erased")
	profile := fx.UserProfile(user, "+44 20 7946 0958")
	fav := fx.Property(fx.LandlordProfile(fx.User("owner"), models.LandlordKindIndividual), "A")
	require.NoError(t, db.Model(profile).Association("Favorites").Append(fav))

	require.NoError(t, profile.PrivacyDelete(db, fixedTokens("tok"), "moderation"))

	var stored models.UserProfile
	require.NoError(t, db.First(&stored, profile.ID).Error)
	assert.True(t, stored.IsAnonymized())
	assert.Equal(t, fmt.Sprintf("tok-%d-moderation", user.ID), stored.UserToken)
	assert.Equal(t, fmt.Sprintf("deleted_%d", profile.ID), stored.Phone)
	assert.Empty(t, stored.Gender)
	assert.Empty(t, stored.Citizenship)
	assert.NotNil(t, stored.AnonymizedAt)
	assert.Zero(t, db.Model(&stored).Association("Favorites").Count())

	// A second call changes nothing, even with a different token source.
	require.NoError(t, stored.PrivacyDelete(db, fixedTokens("other"), "moderation"))
	var again models.UserProfile
	require.NoError(t, db.First(&again, profile.ID).Error)
	assert.Equal(t, stored.UserToken, again.UserToken)
	assert.Equal(t, stored.AnonymizedAt.Unix(), again.AnonymizedAt.Unix())
}

func TestDeletionLog_Label(t *testing.T) {
	l := &models.DeletionLog{DeletedModelName: "Landlord profile", DeletedObjectID: 7}
	assert.Equal(t, "Landlord profile #7", l.Label())
}
