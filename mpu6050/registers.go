package mpu6050

// Address is the default 7-bit I2C address (AD0 pin low).
const Address = 0x68

// Register map, per the InvenSense MPU-6000/MPU-6050 register map revision
// 4.2. Only the registers the simulator models dynamically are listed by
// name; everything else is plain byte storage.
const (
	RegSmplrtDiv   = 0x19
	RegConfig      = 0x1A
	RegGyroConfig  = 0x1B
	RegAccelConfig = 0x1C
	RegFifoEn      = 0x23
	RegIntPinCfg   = 0x37
	RegIntEnable   = 0x38
	RegIntStatus   = 0x3A

	RegAccelXoutH = 0x3B
	RegAccelXoutL = 0x3C
	RegAccelYoutH = 0x3D
	RegAccelYoutL = 0x3E
	RegAccelZoutH = 0x3F
	RegAccelZoutL = 0x40

	RegTempOutH = 0x41
	RegTempOutL = 0x42

	RegGyroXoutH = 0x43
	RegGyroXoutL = 0x44
	RegGyroYoutH = 0x45
	RegGyroYoutL = 0x46
	RegGyroZoutH = 0x47
	RegGyroZoutL = 0x48

	RegUserCtrl   = 0x6A
	RegPwrMgmt1   = 0x6B
	RegPwrMgmt2   = 0x6C
	RegFifoCountH = 0x72
	RegFifoCountL = 0x73
	RegFifoRW     = 0x74
	RegWhoAmI     = 0x75
)

// WhoAmIValue is the fixed identity byte returned by RegWhoAmI.
const WhoAmIValue = 0x68

// PWR_MGMT_1 bits.
const (
	PwrMgmt1DeviceReset = 0x80
	PwrMgmt1Sleep       = 0x40
	PwrMgmt1Cycle       = 0x20
	PwrMgmt1ClkSelMask  = 0x07
)

// USER_CTRL bits.
const (
	UserCtrlFifoEn    = 0x40
	UserCtrlFifoReset = 0x04
)

// ConfigSelfTestMask covers the XA/YA/ZA_ST (resp. XG/YG/ZG_ST) bits of
// ACCEL_CONFIG and GYRO_CONFIG. Setting any of them activates the self-test
// response on the generated samples.
const ConfigSelfTestMask = 0xE0

// Scale constants at the power-on full-scale ranges (±2g, ±250°/s).
const (
	AccelLSBPerG  = 16384
	GyroLSBPerDps = 131.0

	// Temperature transform: raw = (celsius + TempOffset) * TempSensitivity.
	TempSensitivity = 340.0
	TempOffset      = 36.53

	defaultTempC = 21.0
)

// readOnly reports whether external writes to reg are rejected. The
// identity register, all sensor output registers and the FIFO count are
// only ever derived internally; RegFifoRW stays writable (it pushes into
// the FIFO).
func readOnly(reg byte) bool {
	switch reg {
	case RegWhoAmI,
		RegAccelXoutH, RegAccelXoutL,
		RegAccelYoutH, RegAccelYoutL,
		RegAccelZoutH, RegAccelZoutL,
		RegTempOutH, RegTempOutL,
		RegGyroXoutH, RegGyroXoutL,
		RegGyroYoutH, RegGyroYoutL,
		RegGyroZoutH, RegGyroZoutL,
		RegFifoCountH, RegFifoCountL:
		return true
	default:
		return false
	}
}
