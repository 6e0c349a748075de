package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "inv", Password: "secret", Database: "inventory", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=inv password=secret dbname=inventory sslmode=disable", c.GetDSN())

	c.Driver = "pgx"
	assert.Equal(t, "postgres://inv:secret@db:5432/inventory?sslmode=disable", c.GetDSN())

	c = DatabaseConfig{Driver: "sqlite", Path: "/tmp/inv.db"}
	assert.Equal(t, "file:/tmp/inv.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", c.GetDSN())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PATH", "/data/inv.db")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MQTT_QOS", "7")
	t.Setenv("AMQP_EXCHANGE", "inventory")

	db := DatabaseConfig{Port: 5432}
	db.LoadFromEnv("DB")
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, "/data/inv.db", db.Path)

	r := RedisConfig{}
	r.LoadFromEnv("REDIS")
	assert.Equal(t, 3, r.DB)

	m := MQTTConfig{QoS: 1}
	m.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), m.QoS)

	a := AMQPConfig{}
	a.LoadFromEnv("AMQP")
	assert.Equal(t, "inventory", a.Exchange)
}
